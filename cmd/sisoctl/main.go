// Command sisoctl is a line-oriented client for a siso server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pliu/siso/internal/auth"
	"github.com/pliu/siso/internal/client"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const usage = `usage: sisoctl [flags] <command> [args]

commands:
  id                      print your id and invite link
  name <display name>     set your display name
  chat <id|invite link>   open (or create) a chat with someone
  chats                   list your chats
  alias <chat> [name]     name a chat locally (empty clears it)
  send <chat> <text>      send a text message
  send-image <chat> <file>
                          send an image (max 2 MiB)
  watch <chat>            poll a chat and print incoming messages
  find <query>            search users by display name
  delete <chat>           delete a chat and all its messages
  stats                   admin statistics (needs --admin-code)
  hash-code <code>        print a bcrypt hash to use as the server admin code

flags:
`

type app struct {
	api      *client.API
	session  *client.Session
	id       *identity
	idPath   string
	server   string
	log      *logrus.Logger
	v        *viper.Viper
	viewOnce bool
}

func main() {
	fs := pflag.NewFlagSet("sisoctl", pflag.ContinueOnError)
	fs.String("server", "http://localhost:3000", "siso server base URL")
	fs.String("identity", defaultIdentityPath(), "file holding your device identity")
	fs.String("admin-code", "", "admin code for the stats command")
	fs.Bool("view", false, "watch: consume and print messages as they arrive")
	fs.Duration("interval", client.DefaultPollInterval, "watch: poll interval")
	fs.Bool("verbose", false, "log poll activity")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	v := viper.New()
	v.SetEnvPrefix("SISO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.BindPFlags(fs)

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if v.GetBool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}

	a := &app{
		server:   v.GetString("server"),
		idPath:   v.GetString("identity"),
		log:      log,
		v:        v,
		viewOnce: v.GetBool("view"),
	}
	id, err := loadIdentity(a.idPath)
	if err != nil {
		log.WithError(err).Fatal("cannot load identity")
	}
	a.id = id
	a.api = client.NewAPI(a.server)
	a.session = client.NewSession(a.api, id.UserID)
	a.session.Log = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, "error:", apiErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: expected %d argument(s), see sisoctl --help", cmd, n)
		}
		return nil
	}
	switch cmd {
	case "id":
		return a.cmdID()
	case "name":
		if err := need(1); err != nil {
			return err
		}
		return a.cmdName(ctx, strings.Join(args, " "))
	case "chat":
		if err := need(1); err != nil {
			return err
		}
		return a.cmdChat(ctx, args[0])
	case "chats":
		return a.cmdChats(ctx)
	case "alias":
		if err := need(1); err != nil {
			return err
		}
		return a.cmdAlias(ctx, args[0], strings.Join(args[1:], " "))
	case "send":
		if err := need(2); err != nil {
			return err
		}
		return a.cmdSend(ctx, args[0], strings.Join(args[1:], " "))
	case "send-image":
		if err := need(2); err != nil {
			return err
		}
		return a.cmdSendImage(ctx, args[0], args[1])
	case "watch":
		if err := need(1); err != nil {
			return err
		}
		return a.cmdWatch(ctx, args[0])
	case "find":
		if err := need(1); err != nil {
			return err
		}
		return a.cmdFind(ctx, strings.Join(args, " "))
	case "delete":
		if err := need(1); err != nil {
			return err
		}
		return a.cmdDelete(ctx, args[0])
	case "stats":
		return a.cmdStats(ctx)
	case "hash-code":
		if err := need(1); err != nil {
			return err
		}
		h, err := auth.HashAdminCode(args[0])
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
