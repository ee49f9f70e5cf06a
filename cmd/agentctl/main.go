// Command agentctl is a small client for the agent engine HTTP API.
//
//	agentctl run -session s1 -agent synthesis -inputs @inputs.json
//	agentctl get run_1a2b3c4d
//	agentctl events run_1a2b3c4d
//	agentctl watch -session s1
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/leanflow/agentengine/internal/domain"
)

const usage = `usage: agentctl [-addr URL] <command> [flags]

commands:
  run     execute an agent for a session
  get     print a run
  events  print a run's event trail
  watch   stream a session's run notifications
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "agentctl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("agentctl", flag.ContinueOnError)
	addr := global.String("addr", envOr("AGENTENGINE_ADDR", "http://localhost:8080"), "engine HTTP address")
	timeout := global.Duration("timeout", 5*time.Minute, "request timeout")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("command is required")
	}

	client := NewClient(*addr, *timeout)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "run":
		return runCmd(ctx, client, rest, out)
	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("usage: agentctl get <run_id>")
		}
		r, err := client.GetRun(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(out, r)
	case "events":
		if len(rest) != 1 {
			return fmt.Errorf("usage: agentctl events <run_id>")
		}
		events, err := client.Events(ctx, rest[0])
		if err != nil {
			return err
		}
		for _, e := range events {
			fmt.Fprintf(out, "%s  %-22s %s\n", time.UnixMilli(e.Ts).Format(time.RFC3339Nano), e.Type, string(e.Payload))
		}
		return nil
	case "watch":
		fs := flag.NewFlagSet("watch", flag.ContinueOnError)
		session := fs.String("session", "", "session id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *session == "" {
			return fmt.Errorf("-session is required")
		}
		fmt.Fprintf(out, "watching session %s...\n", *session)
		return client.Watch(ctx, *session, func(n domain.RunNotification) {
			line := fmt.Sprintf("%s %s %s", n.RunID, n.AgentType, n.Status)
			if n.Cached {
				line += " (cached)"
			}
			if n.Error != "" {
				line += ": " + n.Error
			}
			fmt.Fprintln(out, line)
		})
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runCmd(ctx context.Context, client *Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	session := fs.String("session", "", "session id")
	agent := fs.String("agent", "", "agent type: "+joinTypes())
	inputs := fs.String("inputs", "{}", "inputs JSON object, or @file")
	caller := fs.String("caller", "", "caller id")
	force := fs.Bool("force", false, "bypass the result cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *session == "" || *agent == "" {
		return fmt.Errorf("-session and -agent are required")
	}

	raw, err := readInputs(*inputs)
	if err != nil {
		return err
	}

	result, err := client.Run(ctx, *session, RunRequest{
		AgentType:  domain.AgentType(*agent),
		Inputs:     raw,
		CallerID:   *caller,
		ForceRerun: *force,
	})
	if err != nil {
		return err
	}
	if err := printJSON(out, result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("run %s failed", result.RunID)
	}
	return nil
}

func readInputs(v string) (json.RawMessage, error) {
	if path, ok := strings.CutPrefix(v, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read inputs: %w", err)
		}
		v = string(b)
	}
	if !json.Valid([]byte(v)) {
		return nil, fmt.Errorf("inputs are not valid JSON")
	}
	return json.RawMessage(v), nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinTypes() string {
	names := make([]string, 0, len(domain.AgentTypes))
	for _, t := range domain.AgentTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
