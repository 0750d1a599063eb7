// Command tg is a CLI client for the talentgate authentication API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const usageText = `tg CLI
Usage:
  tg [-addr URL] <cmd> [args]

Commands:
  version
  register     -e <email> -p <password> -first <name> -last <name>   (saves token)
  login        -e <email> -p <password>                              (saves token)
  whoami
  refresh                                                            (saves token)
  logout
  delete-user  -e <email>
  deactivate   -id <user id>                                         (admin)
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches one subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("tg", flag.ContinueOnError)
	global.SetOutput(stderr)
	addr := global.String("addr", envOr("TG_ADDR", "http://localhost:8080"), "server base URL")
	timeout := global.Duration("timeout", 30*time.Second, "request timeout")
	global.Usage = func() { fmt.Fprint(stderr, usageText) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() < 1 {
		global.Usage()
		return 2
	}
	cmd, rest := global.Arg(0), global.Args()[1:]

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	cli := &apiClient{base: *addr, http: &http.Client{Timeout: *timeout}}

	fail := func(err error) int {
		fmt.Fprintln(stderr, "error:", err)
		var ae *apiError
		if errors.As(err, &ae) && ae.Status == http.StatusUnauthorized {
			return 3
		}
		return 1
	}
	authed := func() bool {
		tok, err := loadToken()
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return false
		}
		cli.token = tok
		return true
	}

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "tg %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ContinueOnError)
		fs.SetOutput(stderr)
		email := fs.String("e", "", "email")
		pw := fs.String("p", "", "password")
		first := fs.String("first", "", "first name")
		last := fs.String("last", "", "last name")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if *email == "" || *pw == "" || *first == "" || *last == "" {
			fmt.Fprintln(stderr, "need -e, -p, -first and -last")
			return 2
		}
		res, err := cli.register(ctx, *email, *pw, *first, *last)
		if err != nil {
			return fail(err)
		}
		if err := saveToken(res.Token); err != nil {
			return fail(err)
		}
		printJSON(stdout, res.User)

	case "login":
		fs := flag.NewFlagSet("login", flag.ContinueOnError)
		fs.SetOutput(stderr)
		email := fs.String("e", "", "email")
		pw := fs.String("p", "", "password")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if *email == "" || *pw == "" {
			fmt.Fprintln(stderr, "need -e and -p")
			return 2
		}
		res, err := cli.login(ctx, *email, *pw)
		if err != nil {
			return fail(err)
		}
		if err := saveToken(res.Token); err != nil {
			return fail(err)
		}
		fmt.Fprintln(stdout, "ok")

	case "whoami":
		if !authed() {
			return 3
		}
		user, err := cli.whoami(ctx)
		if err != nil {
			return fail(err)
		}
		printJSON(stdout, user)

	case "refresh":
		if !authed() {
			return 3
		}
		tok, err := cli.refresh(ctx)
		if err != nil {
			return fail(err)
		}
		if err := saveToken(tok); err != nil {
			return fail(err)
		}
		fmt.Fprintln(stdout, "ok")

	case "logout":
		if !authed() {
			return 3
		}
		if err := cli.logout(ctx); err != nil {
			return fail(err)
		}
		if err := clearToken(); err != nil {
			return fail(err)
		}
		fmt.Fprintln(stdout, "ok")

	case "delete-user":
		fs := flag.NewFlagSet("delete-user", flag.ContinueOnError)
		fs.SetOutput(stderr)
		email := fs.String("e", "", "email")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if *email == "" {
			fmt.Fprintln(stderr, "need -e")
			return 2
		}
		if !authed() {
			return 3
		}
		if err := cli.deleteUser(ctx, *email); err != nil {
			return fail(err)
		}
		fmt.Fprintln(stdout, "ok")

	case "deactivate":
		fs := flag.NewFlagSet("deactivate", flag.ContinueOnError)
		fs.SetOutput(stderr)
		id := fs.Int64("id", 0, "user id")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if *id <= 0 {
			fmt.Fprintln(stderr, "need -id")
			return 2
		}
		if !authed() {
			return 3
		}
		if err := cli.deactivate(ctx, *id); err != nil {
			return fail(err)
		}
		fmt.Fprintln(stdout, "ok")

	default:
		global.Usage()
		return 2
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
