// program_lua.go - Lua guest programs for the Phosphor Engine

/*
(c) 2025 - 2026 Phosphor Engine contributors
https://github.com/phosphorvm/PhosphorEngine
License: GPLv3 or later
*/

/*
program_lua.go - Lua Guest Programs

Guest programs can be written in Lua instead of Go. The interpreter runs on
the guest side of the machine boundary: scripts see the console, the serial
channel and the exit register through small API tables and nothing of the
host. The pure standard libraries (base, table, string, math) are opened;
the host-facing ones (os, io) are not, so a script cannot bypass the
machine's exit protocol or touch the host filesystem.

	console.print(...)        write to the text grid
	console.println(...)      write plus a newline
	console.setcolor(fg, bg)  palette names or indexes, bg optional
	console.clear()           blank the grid, home the cursor
	console.position()        -> row, col
	console.cols()            -> grid width
	console.rows()            -> grid height
	serial.print(...)         write to the serial channel
	serial.println(...)       write plus a newline
	machine.exit(code)        exit through the debug register, code optional
	machine.halt()            clean stop without an exit code

The global print is rebound to console.println so unadorned scripts land on
the grid rather than the host's stdout.
*/

package main

import (
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// LuaProgram loads a script from disk and returns a guest program that runs
// it against the machine.
func LuaProgram(path string) (func(*Kernel), error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading lua program: %w", err)
	}
	return luaProgramSource(path, string(src)), nil
}

func luaProgramSource(name, src string) func(*Kernel) {
	return func(k *Kernel) {
		L := newGuestState(k)
		defer L.Close()

		fn, err := L.Load(strings.NewReader(src), name)
		if err != nil {
			k.Panic("lua: %v", err)
		}
		L.Push(fn)
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			// A deliberate machine.exit or machine.halt unwinds through
			// the interpreter and surfaces here as an error. The machine
			// is already halting; only a genuine script error panics.
			if k.machine.Halted() {
				return
			}
			k.Panic("lua: %v", err)
		}
	}
}

// newGuestState builds an interpreter with the pure standard libraries and
// the machine API tables installed.
func newGuestState(k *Kernel) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			panic(err)
		}
	}

	registerConsoleTable(L, k)
	registerSerialTable(L, k)
	registerMachineTable(L, k)

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		k.Println(luaJoinArgs(L))
		return 0
	}))
	return L
}

func registerConsoleTable(L *lua.LState, k *Kernel) {
	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"print": func(L *lua.LState) int {
			k.Print(luaJoinArgs(L))
			return 0
		},
		"println": func(L *lua.LState) int {
			k.Println(luaJoinArgs(L))
			return 0
		},
		"setcolor": func(L *lua.LState) int {
			fg := luaColorArg(L, 1, COLOR_LIGHT_GRAY)
			bg := luaColorArg(L, 2, COLOR_BLACK)
			k.SetColors(fg, bg)
			return 0
		},
		"clear": func(L *lua.LState) int {
			k.Clear()
			return 0
		},
		"position": func(L *lua.LState) int {
			row, col := k.Position()
			L.Push(lua.LNumber(row))
			L.Push(lua.LNumber(col))
			return 2
		},
		"cols": func(L *lua.LState) int {
			L.Push(lua.LNumber(k.Cols()))
			return 1
		},
		"rows": func(L *lua.LState) int {
			L.Push(lua.LNumber(k.Rows()))
			return 1
		},
	})
	L.SetGlobal("console", tbl)
}

func registerSerialTable(L *lua.LState, k *Kernel) {
	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"print": func(L *lua.LState) int {
			k.SerialPrintf("%s", luaJoinArgs(L))
			return 0
		},
		"println": func(L *lua.LState) int {
			k.SerialPrintf("%s\n", luaJoinArgs(L))
			return 0
		},
	})
	L.SetGlobal("serial", tbl)
}

func registerMachineTable(L *lua.LState, k *Kernel) {
	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"exit": func(L *lua.LState) int {
			code := uint32(EXIT_CODE_SUCCESS)
			if L.GetTop() >= 1 {
				code = uint32(L.CheckInt(1))
			}
			k.Exit(code)
			return 0
		},
		"halt": func(L *lua.LState) int {
			k.Halt()
			return 0
		},
	})
	L.SetGlobal("machine", tbl)
}

// luaJoinArgs renders every argument the way the stock print does, tab
// separated.
func luaJoinArgs(L *lua.LState) string {
	var b strings.Builder
	top := L.GetTop()
	for i := 1; i <= top; i++ {
		if i > 1 {
			b.WriteByte('\t')
		}
		b.WriteString(L.ToStringMeta(L.Get(i)).String())
	}
	return b.String()
}

// luaColorArg resolves an optional color argument given as a palette name
// or index. A missing argument yields the fallback; a bad one raises a
// script error.
func luaColorArg(L *lua.LState, n int, fallback Color) Color {
	v := L.Get(n)
	switch v.Type() {
	case lua.LTNil:
		return fallback
	case lua.LTNumber:
		idx := int(v.(lua.LNumber))
		if idx < 0 || idx > 15 {
			L.ArgError(n, fmt.Sprintf("color index %d out of range", idx))
		}
		return Color(idx)
	default:
		c, err := ParseColor(lua.LVAsString(v))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return c
	}
}
