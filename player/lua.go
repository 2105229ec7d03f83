package player

import (
	"context"
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/grid"
)

// Lua runs a script in a sandboxed interpreter. The script must define
// get_move(view) returning a move name and may define init(view).
//
// The view table carries index, round, turn, me, team_bots, enemy_bots,
// legal_moves, team_food and enemy_food. Bots are tables with index, team,
// x, y, initial_x, initial_y and harvester; positions are tables with x and y.
type Lua struct {
	mu sync.Mutex
	vm *lua.LState
}

// NewLua compiles and runs script so its functions are defined.
func NewLua(script string) (*Lua, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("player: loading lua script: %w", err)
	}
	if _, ok := L.GetGlobal("get_move").(*lua.LFunction); !ok {
		L.Close()
		return nil, fmt.Errorf("player: lua script does not define get_move")
	}
	return &Lua{vm: L}, nil
}

// LoadLua reads a script from path.
func LoadLua(path string) (*Lua, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewLua(string(b))
}

func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the interpreter or break
// determinism.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
		tbl.RawSetString("random", lua.LNil)
	}
}

func (a *Lua) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.vm.Close()
}

func (a *Lua) Init(ctx context.Context, v View) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn, ok := a.vm.GetGlobal("init").(*lua.LFunction)
	if !ok {
		return nil
	}
	_, err := a.call(ctx, fn, v)
	return err
}

func (a *Lua) GetMove(ctx context.Context, v View) (game.Move, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn, ok := a.vm.GetGlobal("get_move").(*lua.LFunction)
	if !ok {
		return game.Stop, fmt.Errorf("player: lua script no longer defines get_move")
	}
	ret, err := a.call(ctx, fn, v)
	if err != nil {
		return game.Stop, err
	}
	s, ok := ret.(lua.LString)
	if !ok {
		return game.Stop, fmt.Errorf("player: get_move returned %s, want string", ret.Type())
	}
	return game.ParseMove(string(s))
}

func (a *Lua) call(ctx context.Context, fn *lua.LFunction, v View) (lua.LValue, error) {
	a.vm.SetContext(ctx)
	defer a.vm.RemoveContext()
	if err := a.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, viewTable(a.vm, v)); err != nil {
		return lua.LNil, fmt.Errorf("player: lua: %w", err)
	}
	ret := a.vm.Get(-1)
	a.vm.Pop(1)
	return ret, nil
}

func viewTable(L *lua.LState, v View) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("index", lua.LNumber(v.Index))
	t.RawSetString("round", lua.LNumber(v.Current.Round()))
	t.RawSetString("turn", lua.LNumber(v.Current.Turn()))
	t.RawSetString("me", botTable(L, v.Me()))
	t.RawSetString("team_bots", botsTable(L, v.TeamBots()))
	t.RawSetString("enemy_bots", botsTable(L, v.EnemyBots()))

	legal := L.NewTable()
	for _, mt := range v.LegalMoves() {
		legal.Append(lua.LString(mt.Move.String()))
	}
	t.RawSetString("legal_moves", legal)
	t.RawSetString("team_food", coordsTable(L, v.TeamFood()))
	t.RawSetString("enemy_food", coordsTable(L, v.EnemyFood()))
	return t
}

func botTable(L *lua.LState, b game.Bot) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("index", lua.LNumber(b.Index))
	t.RawSetString("team", lua.LNumber(b.TeamIndex))
	t.RawSetString("x", lua.LNumber(b.CurrentPos.X))
	t.RawSetString("y", lua.LNumber(b.CurrentPos.Y))
	t.RawSetString("initial_x", lua.LNumber(b.InitialPos.X))
	t.RawSetString("initial_y", lua.LNumber(b.InitialPos.Y))
	t.RawSetString("harvester", lua.LBool(b.IsHarvester()))
	return t
}

func botsTable(L *lua.LState, bots []game.Bot) *lua.LTable {
	t := L.NewTable()
	for _, b := range bots {
		t.Append(botTable(L, b))
	}
	return t
}

func coordsTable(L *lua.LState, cs []grid.Coord) *lua.LTable {
	t := L.NewTable()
	for _, c := range cs {
		p := L.NewTable()
		p.RawSetString("x", lua.LNumber(c.X))
		p.RawSetString("y", lua.LNumber(c.Y))
		t.Append(p)
	}
	return t
}
