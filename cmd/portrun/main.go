package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/port-runtime/engine"
	"github.com/wippyai/port-runtime/port"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML scenario file")
		messages    = flag.Int("messages", 1000, "Messages per channel (without -config)")
		payload     = flag.String("payload", "ping", "Message payload (without -config)")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		engine.SetLogger(logger)
		port.SetLogger(logger)
	}

	if *interactive {
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	scenario := DefaultScenario(*messages, *payload)
	if *configFile != "" {
		s, err := LoadScenario(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		scenario = s
	}

	if err := run(scenario); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(s *Scenario) error {
	contexts := make(map[string]*engine.Context, len(s.Contexts))
	for _, name := range s.Contexts {
		ctx := engine.NewContext(name)
		contexts[name] = ctx
		go ctx.Run()
	}
	defer func() {
		for _, ctx := range contexts {
			ctx.Close()
		}
	}()

	fmt.Printf("Contexts: %d\n", len(s.Contexts))
	fmt.Printf("Channels: %d\n\n", len(s.Channels))

	var wg sync.WaitGroup
	start := time.Now()
	total := 0

	type run struct {
		ch       Channel
		sender   *port.Port
		receiver *port.Port
	}
	runs := make([]run, len(s.Channels))
	for i, ch := range s.Channels {
		sender, receiver := port.Pair(contexts[ch.From], contexts[ch.To])
		runs[i] = run{ch: ch, sender: sender, receiver: receiver}
		total += ch.Messages

		wg.Add(ch.Messages)
		receiver.SetOnMessage(func(value any) {
			wg.Done()
		})
		receiver.Start()
	}

	for _, r := range runs {
		go func(r run) {
			for seq := 0; seq < r.ch.Messages; seq++ {
				value := map[string]any{"seq": seq, "data": r.ch.Payload}
				if err := r.sender.PostMessage(value, nil); err != nil {
					fmt.Fprintf(os.Stderr, "post %s->%s: %v\n", r.ch.From, r.ch.To, err)
					wg.Done()
				}
			}
		}(r)
	}

	wg.Wait()
	elapsed := time.Since(start)

	for _, r := range runs {
		r.sender.Close()
		r.receiver.Close()
	}

	fmt.Printf("Delivered %d messages in %v (%.0f msg/s)\n",
		total, elapsed.Round(time.Microsecond),
		float64(total)/elapsed.Seconds())
	return nil
}
