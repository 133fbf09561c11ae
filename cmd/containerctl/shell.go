package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
)

const shellHistoryFileName = ".containerctl_history"

type shell struct {
	admin *admin
	hfile string
}

func newShell(a *admin, hfile string) *shell {
	return &shell{admin: a, hfile: hfile}
}

func historyFilePath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, shellHistoryFileName)
}

func printLogo() {
	fmt.Print("containerctl - inversion-of-control admin shell\ntype 'help' for a command list, 'quit' to leave\n\n")
}

func printError(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err)
}

func (s *shell) run() {
	printLogo()
	lnr := liner.NewLiner()
	lnr.SetCtrlCAborts(true)

	s.loadHistory(lnr)
	defer func() {
		s.saveHistory(lnr)
		_ = lnr.Close()
		fmt.Println("bye!")
	}()

	for {
		inp, err := lnr.Prompt("containerctl> ")
		if err != nil {
			if err != io.EOF && err != liner.ErrPromptAborted {
				printError(err)
			}
			return
		}

		inp = strings.TrimSpace(inp)
		if inp == "" {
			continue
		}
		lnr.AppendHistory(inp)

		ctx, cancel := context.WithCancel(context.Background())
		notify := make(chan os.Signal, 1)
		signal.Notify(notify, os.Interrupt, syscall.SIGTERM)
		go func() {
			if _, ok := <-notify; ok {
				cancel()
			}
		}()

		err = execCmd(ctx, inp, s.admin)
		signal.Stop(notify)
		close(notify)
		cancel()

		if err == errQuit {
			return
		}
		if err != nil {
			printError(err)
		}
	}
}

func (s *shell) loadHistory(lnr *liner.State) {
	f, err := os.OpenFile(s.hfile, os.O_RDONLY|os.O_CREATE, 0640)
	if err != nil {
		printError(err)
		return
	}
	defer f.Close()
	if _, err := lnr.ReadHistory(f); err != nil {
		printError(err)
	}
}

func (s *shell) saveHistory(lnr *liner.State) {
	f, err := os.OpenFile(s.hfile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		printError(err)
		return
	}
	defer f.Close()
	if _, err := lnr.WriteHistory(f); err != nil {
		printError(err)
	}
}
