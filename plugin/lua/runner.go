package lua

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// hookName is the name of the global lua function called for each lease
// event
const hookName = "on_lease"

// Settings can be declared by a script using a global "settings" table
//
//	settings = {
//		events = { "lease-created", "lease-released" },
//	}
type Settings struct {
	// Events limits the lease events passed to the hook. All events are
	// passed if empty
	Events []string
}

// Runner executes a lua script and calls its on_lease hook
type Runner struct {
	name  string
	proto *lua.FunctionProto
	l     log.Interface

	mu       sync.Mutex
	state    *lua.LState              // access protected by mu
	settings Settings                 // access protected by mu
	events   map[caddy.EventName]bool // access protected by mu
	db       lease.Database           // access protected by mu
}

// Compile parses and compiles the lua script at path. Syntax errors are
// reported without running the script
func Compile(path string, l log.Interface) (*Runner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	chunk, err := parse.Parse(f, path)
	if err != nil {
		return nil, err
	}

	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, err
	}

	return &Runner{
		name:  path,
		proto: proto,
		l:     l,
	}, nil
}

// Start creates a new lua state and runs the script. The script must
// declare a global on_lease function
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != nil {
		return nil
	}

	L := lua.NewState()
	r.exportModule(L)

	L.Push(L.NewFunctionFromProto(r.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.Close()
		return err
	}

	if _, ok := L.GetGlobal(hookName).(*lua.LFunction); !ok {
		L.Close()
		return fmt.Errorf("%s: global function %s() not declared", r.name, hookName)
	}

	var settings Settings
	if tbl, ok := L.GetGlobal("settings").(*lua.LTable); ok {
		if err := gluamapper.Map(tbl, &settings); err != nil {
			L.Close()
			return fmt.Errorf("%s: invalid settings: %w", r.name, err)
		}
	}

	events := make(map[caddy.EventName]bool, len(settings.Events))
	for _, e := range settings.Events {
		events[caddy.EventName(e)] = true
	}

	r.state = L
	r.settings = settings
	r.events = events

	return nil
}

// Stop closes the lua state
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != nil {
		r.state.Close()
		r.state = nil
	}

	return nil
}

// Settings returns the settings declared by the script
func (r *Runner) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.settings
}

// Call calls on_lease(event, hwaddr, shortaddr, timestamp). It is a
// no-op if the runner has not been started or the script is not
// interested in event
func (r *Runner) Call(ctx context.Context, event caddy.EventName, l *lease.Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		return nil
	}

	if len(r.events) > 0 && !r.events[event] {
		return nil
	}

	var (
		hwaddr    string
		shortaddr float64
		timestamp float64
	)
	if l != nil {
		hwaddr = l.HwAddr.String()
		shortaddr = float64(l.ShortAddr)
		timestamp = float64(l.LastSeen.Unix())
	}

	r.db = lease.GetDatabase(ctx)
	defer func() { r.db = nil }()

	r.state.SetContext(ctx)
	defer r.state.RemoveContext()

	return r.state.CallByParam(lua.P{
		Fn:      r.state.GetGlobal(hookName),
		NRet:    0,
		Protect: true,
	}, lua.LString(string(event)), lua.LString(hwaddr), lua.LNumber(shortaddr), lua.LNumber(timestamp))
}

// exportModule exposes the global "nextshort" table to the script
func (r *Runner) exportModule(L *lua.LState) {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"leases": r.luaLeases,
		"log":    r.luaLog,
	})

	L.SetGlobal("nextshort", mod)
}

// luaLeases returns all active leases as a list of tables with the keys
// hwaddr, shortaddr and timestamp
func (r *Runner) luaLeases(L *lua.LState) int {
	if r.db == nil {
		L.RaiseError("leases are only available within %s()", hookName)
		return 0
	}

	leases, err := r.db.Leases(L.Context())
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	result := L.CreateTable(len(leases), 0)
	for _, l := range leases {
		tbl := L.CreateTable(0, 3)
		tbl.RawSetString("hwaddr", lua.LString(l.HwAddr.String()))
		tbl.RawSetString("shortaddr", lua.LNumber(l.ShortAddr))
		tbl.RawSetString("timestamp", lua.LNumber(l.LastSeen.Unix()))
		result.Append(tbl)
	}

	L.Push(result)
	return 1
}

// luaLog logs all arguments at info level
func (r *Runner) luaLog(L *lua.LState) int {
	var msg string
	for i := 1; i <= L.GetTop(); i++ {
		if i > 1 {
			msg += " "
		}
		msg += L.ToStringMeta(L.Get(i)).String()
	}

	r.l.Infof("%s", msg)
	return 0
}
