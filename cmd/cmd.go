package cmd

import (
	"fmt"
	"os"

	e "github.com/bytelox/bytelox/errors"
	"github.com/bytelox/bytelox/vm"
	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

// config holds the environment-provided defaults; flags override them.
type config struct {
	Verbosity string `env:"BYTELOX_VERBOSITY" envDefault:"INFO"`
}

func App() (app *cobra.Command) {
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		cfg.Verbosity = "INFO"
	}

	app = &cobra.Command{
		Use:   "bytelox [path]",
		Short: "Launch the bytelox interpreter",
		Long: "Run a script when given a path, or start a line-oriented" +
			" read-eval-print loop when given none.",
	}

	app.Flags().SortFlags = true
	verbosity := app.Flags().StringP("verbosity", "v", cfg.Verbosity, "Logging verbosity")
	disassemble := app.Flags().BoolP(
		"disassemble", "d", false,
		"Dump the compiled bytecode listing instead of executing it",
	)

	app.Run = func(_ *cobra.Command, args []string) {
		verbosityLvl, err := logrus.ParseLevel(*verbosity)
		if err != nil {
			verbosityLvl = logrus.InfoLevel
		}
		logrus.SetLevel(verbosityLvl)
		logrus.SetFormatter(&easy.Formatter{LogFormat: "//DBG// %msg%\n"})

		os.Exit(appMain(args, *disassemble))
	}
	return
}

func appMain(args []string, disassemble bool) int {
	vm_ := vm.NewVM()
	switch len(args) {
	case 0:
		if err := vm_.REPL(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return e.ExIOErr
		}
		return e.ExOK
	case 1:
		if err := runFile(vm_, args[0], disassemble); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return e.ExitCode(err)
		}
		return e.ExOK
	default:
		fmt.Fprintln(os.Stderr, "Usage: bytelox [path]")
		return e.ExUsage
	}
}

func runFile(vm_ *vm.VM, path string, disassemble bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return &e.IOError{Path: path, Err: err}
	}

	if disassemble {
		chunk, err := vm.NewParser().Compile(string(src))
		if err != nil {
			return err
		}
		fmt.Print(chunk.Disassemble(path))
		return nil
	}

	_, err = vm_.Interpret(string(src))
	return err
}
