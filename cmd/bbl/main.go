// cmd/bbl/main.go
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"bbl/internal/analyzer"
	"bbl/internal/bytecode"
	"bbl/internal/lexer"
	"bbl/internal/vm"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Exit codes, per spec.md §6.
const (
	exitSuccess            = 0
	exitOpenSourceFailure  = 1
	exitTranslatorError    = 2
	exitInternalError      = 3
	exitWriteOutputFailure = 4
	exitOpenBytecodeFailure = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		compilePath  string
		outPath      = "out.bbl"
		runPath      string
		disasmPath   string
		disableWarn  bool
		stackSize    int
		heapSize     int
		haveCompile  bool
		haveRun      bool
		haveDisasm   bool
	)

	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "-c", "--compile":
			i++
			if i >= len(args) {
				return usageError("%s requires a path", a)
			}
			compilePath, haveCompile = args[i], true
		case "-o", "--out":
			i++
			if i >= len(args) {
				return usageError("%s requires a path", a)
			}
			outPath = args[i]
		case "-r", "--run":
			i++
			if i >= len(args) {
				return usageError("%s requires a path", a)
			}
			runPath, haveRun = args[i], true
		case "-d", "--disasm":
			i++
			if i >= len(args) {
				return usageError("%s requires a path", a)
			}
			disasmPath, haveDisasm = args[i], true
		case "--disableWarnings":
			disableWarn = true
		case "--stack-size":
			i++
			if i >= len(args) {
				return usageError("%s requires a byte count", a)
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return usageError("%s: %v", a, err)
			}
			stackSize = n
		case "--heap-size":
			i++
			if i >= len(args) {
				return usageError("%s requires a byte count", a)
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return usageError("%s: %v", a, err)
			}
			heapSize = n
		case "-h", "--help":
			printUsage(os.Stdout)
			return exitSuccess
		default:
			return usageError("unrecognized argument %q", a)
		}
	}

	if !haveCompile && !haveRun && !haveDisasm {
		printUsage(os.Stdout)
		return exitSuccess
	}

	if haveCompile {
		if code := doCompile(compilePath, outPath, disableWarn); code != exitSuccess {
			return code
		}
		if haveDisasm {
			return doDisasmFile(outPath)
		}
		return exitSuccess
	}

	if haveRun {
		return doRun(runPath, stackSize, heapSize)
	}

	return doDisasmFile(disasmPath)
}

func usageError(format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "bbl: "+format+"\n", args...)
	return exitInternalError
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, `usage:
  bbl -c|--compile <path> [-o|--out <path>] [--disableWarnings] [-d|--disasm <path>]
  bbl -r|--run <path> [--stack-size <bytes>] [--heap-size <bytes>]
  bbl -d|--disasm <path>`)
}

func doCompile(path, outPath string, disableWarn bool) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bbl: opening %s: %v\n", path, err)
		return exitOpenSourceFailure
	}

	toks, err := lexer.ScanAll(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "bbl: %v\n", err)
		return exitTranslatorError
	}

	a, err := analyzer.Compile(string(src), toks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bbl: %v\n", err)
		return exitTranslatorError
	}

	if !disableWarn {
		tty := isatty.IsTerminal(os.Stderr.Fd())
		for _, w := range a.Warnings {
			if tty {
				fmt.Fprintf(os.Stderr, "%s (source index %d)\n", w.Message, w.SourceIndex)
			} else {
				fmt.Fprintln(os.Stderr, w.String())
			}
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bbl: creating %s: %v\n", outPath, err)
		return exitWriteOutputFailure
	}
	defer out.Close()

	if err := bytecode.Write(out, a.Stream()); err != nil {
		fmt.Fprintf(os.Stderr, "bbl: writing %s: %v\n", outPath, err)
		return exitWriteOutputFailure
	}

	info, err := os.Stat(outPath)
	if err == nil {
		fmt.Fprintf(os.Stderr, "bbl: wrote %s (%s)\n", outPath, humanize.Bytes(uint64(info.Size())))
	}
	if keys := a.InternedTypeKeys(); len(keys) > 0 {
		sort.Strings(keys)
		fmt.Fprintf(os.Stderr, "bbl: interned types: %s\n", strings.Join(keys, ", "))
	}
	return exitSuccess
}

func doRun(path string, stackSize, heapSize int) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bbl: opening %s: %v\n", path, err)
		return exitOpenBytecodeFailure
	}
	defer f.Close()

	stream, err := bytecode.Read(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bbl: %v\n", err)
		return exitOpenBytecodeFailure
	}

	actualStackSize := stackSize
	if actualStackSize == 0 {
		actualStackSize = vm.DefaultStackSize
	}
	actualHeapSize := heapSize
	if actualHeapSize == 0 {
		actualHeapSize = vm.DefaultMaxSize - vm.DefaultStackSize
	}

	m := vm.New(stream, vm.Config{StackSize: actualStackSize, MaxSize: actualStackSize + actualHeapSize})
	code, err := m.Run()
	if err != nil {
		// spec.md §6 only names 0/program-exit-code and 5 (open-bytecode
		// failure) for -r; a fatal runtime fault is reported as a plain
		// non-zero exit distinct from both.
		fmt.Fprintf(os.Stderr, "bbl: %v\n", err)
		return 1
	}
	return int(code)
}

func doDisasmFile(path string) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bbl: opening %s: %v\n", path, err)
		return exitOpenBytecodeFailure
	}
	defer f.Close()

	stream, err := bytecode.Read(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bbl: %v\n", err)
		return exitOpenBytecodeFailure
	}
	fmt.Print(bytecode.Disassemble(stream))
	return exitSuccess
}
