// Command msnpclient is a line-oriented demo of the msnp client library: it
// logs in, prints every event the client publishes, and accepts a handful
// of terminal commands to drive switchboard sessions.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mk6i/go-msnp12/events"
)

var (
	// default build fields populated by GoReleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	cfgFile := flag.String("config", "settings.env", "Path to config file")
	showHelp := flag.Bool("help", false, "Display help")
	showVersion := flag.Bool("version", false, "Display build information")

	flag.Parse()

	switch {
	case *showVersion:
		fmt.Printf("%-10s %s\n", "version:", version)
		fmt.Printf("%-10s %s\n", "commit:", commit)
		fmt.Printf("%-10s %s\n", "date:", date)
		os.Exit(0)
	case *showHelp:
		flag.PrintDefaults()
		os.Exit(0)
	}

	// optionally populate environment variables with config file
	if err := godotenv.Load(*cfgFile); err != nil {
		fmt.Printf("Config file (%s) not found, defaulting to env vars for app config...\n", *cfgFile)
	} else {
		fmt.Printf("Successfully loaded config file (%s)\n", *cfgFile)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := MakeCommonDeps()
	if err != nil {
		fmt.Printf("startup failed: %s\n", err)
		os.Exit(1)
	}

	if deps.cfg.LoginName == "" || deps.cfg.Password == "" {
		fmt.Println("LOGIN_NAME and PASSWORD must be set to run the demo client")
		os.Exit(1)
	}

	if err := deps.client.Login(ctx, deps.cfg.LoginName, deps.cfg.Password); err != nil {
		deps.logger.Error("login failed", "err", err.Error())
		os.Exit(1)
	}
	fmt.Printf("logged in as %s\n", deps.client.LocalUser().LoginName())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return printEvents(ctx, deps)
	})
	g.Go(func() error {
		return runTerminal(ctx, deps)
	})

	<-ctx.Done()
	deps.client.Logout()

	if err := g.Wait(); err != nil {
		deps.logger.Error("msnpclient exited with error", "err", err.Error())
		os.Exit(1)
	}
}

// printEvents renders every event published by the client to stdout until
// ctx is cancelled.
func printEvents(ctx context.Context, deps Container) error {
	evts, cancel := deps.client.Subscribe(64)
	defer cancel()

	for {
		select {
		case evt, ok := <-evts:
			if !ok {
				return nil
			}
			printEvent(evt)
		case <-ctx.Done():
			return nil
		}
	}
}

func printEvent(evt events.Event) {
	switch e := evt.(type) {
	case events.LoggedIn:
		fmt.Printf("[status] logged in as %s\n", e.LoginName)
	case events.LoggedOut:
		if e.Reason != nil {
			fmt.Printf("[status] logged out: %s\n", e.Reason)
		} else {
			fmt.Println("[status] logged out")
		}
	case events.ContactStatusChanged:
		fmt.Printf("[contact] %s (%s) is now %s\n", e.LoginName, e.Nickname, e.Status)
	case events.InvitedToIMSession:
		fmt.Printf("[invite] %s invited you to session %s (accept %s / reject %s)\n", e.InvitingUser, e.SessionID, e.SessionID, e.SessionID)
	case events.MessageReceived:
		if e.ContentType == "text/x-msmsgscontrol" {
			fmt.Printf("[typing] %s is typing...\n", e.Nickname)
		} else {
			fmt.Printf("[%s] %s: %s\n", e.SessionID, e.Nickname, string(e.Payload))
		}
	case events.DeliveryFailed:
		fmt.Printf("[error] message %d in session %s failed: %s\n", e.TrID, e.SessionID, e.Err)
	case events.ParticipantJoined:
		fmt.Printf("[%s] %s joined\n", e.SessionID, e.Nickname)
	case events.ParticipantLeft:
		fmt.Printf("[%s] %s left\n", e.SessionID, e.LoginName)
	case events.SessionClosed:
		fmt.Printf("[%s] session closed\n", e.SessionID)
	case events.NotificationReceived:
		fmt.Printf("[notification] %d bytes\n", len(e.Payload))
	}
}

// runTerminal reads commands from stdin until ctx is cancelled or stdin
// closes. Supported commands:
//
//	msg <loginName> <text>   start or reuse a session and send text
//	accept <sessionID>       join a pending invitation
//	reject <sessionID>       discard a pending invitation
//	status <STATUS>          change presence (e.g. NLN, BSY, AWY)
//	quit                     shut down
func runTerminal(ctx context.Context, deps Container) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := dispatchCommand(ctx, deps, line); err != nil {
				fmt.Printf("[error] %s\n", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func dispatchCommand(ctx context.Context, deps Container, line string) error {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(fields) == 0 || fields[0] == "" {
		return nil
	}

	switch fields[0] {
	case "quit":
		os.Exit(0)
		return nil

	case "status":
		if len(fields) != 2 {
			return fmt.Errorf("usage: status <STATUS>")
		}
		return deps.client.ChangeStatus(ctx, fields[1])

	case "accept":
		if len(fields) != 2 {
			return fmt.Errorf("usage: accept <sessionID>")
		}
		_, err := deps.client.AcceptInvitation(ctx, fields[1])
		return err

	case "reject":
		if len(fields) != 2 {
			return fmt.Errorf("usage: reject <sessionID>")
		}
		deps.client.RejectInvitation(fields[1])
		return nil

	case "msg":
		if len(fields) != 3 {
			return fmt.Errorf("usage: msg <loginName> <text>")
		}
		return sendTo(ctx, deps, fields[1], fields[2])

	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

// sessionsByPeer remembers a loginName -> sessionID mapping so repeated "msg"
// commands to the same peer reuse one switchboard session instead of
// re-inviting every time.
var sessionsByPeer = map[string]string{}

func sendTo(ctx context.Context, deps Container, loginName, text string) error {
	if sessionID, ok := sessionsByPeer[loginName]; ok {
		if s, ok := deps.client.Session(sessionID); ok {
			return s.SendText(ctx, text)
		}
		delete(sessionsByPeer, loginName)
	}

	s, err := deps.client.StartIMSession(ctx, loginName)
	if err != nil {
		return err
	}
	sessionsByPeer[loginName] = s.SessionID()
	return s.SendText(ctx, text)
}
