package player

import (
	"fmt"

	"github.com/brensch/mazewar/codec"
	"github.com/brensch/mazewar/game"
)

const ViewTypeID = "player.View"

func init() {
	if err := RegisterTypes(codec.Default); err != nil {
		panic(err)
	}
}

func RegisterTypes(r *codec.Registry) error {
	return codec.Register(r, ViewTypeID, ViewFromFields)
}

func (View) TypeID() string { return ViewTypeID }

// Reduce carries the conveniences alongside the snapshots so remote agents
// need not derive them. Only index, current and previous are read back.
// An invalid view is written without the conveniences and fails to decode.
func (v View) Reduce() map[string]any {
	var prev any
	if v.Previous != nil {
		prev = v.Previous
	}
	fields := map[string]any{
		"index":    v.Index,
		"current":  v.Current,
		"previous": prev,
	}
	if v.Current == nil || v.Index < 0 || v.Index >= v.Current.NumBots() {
		return fields
	}
	me := v.Me()
	fields["me"] = me
	fields["team_bots"] = botsAny(v.TeamBots())
	fields["enemy_bots"] = botsAny(v.EnemyBots())
	fields["current_pos"] = [2]int{me.CurrentPos.X, me.CurrentPos.Y}
	fields["initial_pos"] = [2]int{me.InitialPos.X, me.InitialPos.Y}
	return fields
}

func botsAny(bots []game.Bot) []any {
	out := make([]any, len(bots))
	for i, b := range bots {
		out[i] = b
	}
	return out
}

func ViewFromFields(f map[string]any) (View, error) {
	var v View
	var err error
	if v.Index, err = codec.Int(f, "index"); err != nil {
		return View{}, err
	}
	cur, ok := f["current"].(*game.Universe)
	if !ok {
		return View{}, fmt.Errorf("%w: %q is %T, want universe", codec.ErrField, "current", f["current"])
	}
	v.Current = cur
	if p := f["previous"]; p != nil {
		prev, ok := p.(*game.Universe)
		if !ok {
			return View{}, fmt.Errorf("%w: %q is %T, want universe", codec.ErrField, "previous", p)
		}
		v.Previous = prev
	}
	if err := v.Validate(); err != nil {
		return View{}, err
	}
	return v, nil
}
