package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cronsmith/internal/app"
)

func main() {
	var (
		cfgPath string
		check   bool
		once    bool
	)
	flag.StringVar(&cfgPath, "config", "/etc/cronsmith/config.yaml", "path to config file (json or yaml)")
	flag.BoolVar(&check, "check", false, "validate the config and exit")
	flag.BoolVar(&once, "once", false, "run a single apply pass and exit")
	flag.Parse()

	if check {
		if _, err := app.NewConfigManager(cfgPath).Parse(); err != nil {
			fmt.Fprintln(os.Stderr, "config invalid:", err)
			os.Exit(1)
		}
		fmt.Println("config ok")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if once {
		res, err := a.ApplyOnce(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "apply failed:", err)
			os.Exit(1)
		}
		fmt.Printf("installed=%d removed=%d unchanged=%d rejected=%d\n",
			res.Installed, res.Removed, res.Unchanged, res.Rejected)
		if res.Rejected > 0 {
			os.Exit(2)
		}
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}

	<-a.Done()
	_ = a.Stop(context.Background())
	if err := a.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "exit:", err)
		os.Exit(1)
	}
}
