// Package cli provides the flag and bootstrap code shared by the aka-server,
// aka-gateway and aka-client commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/backkem/triaka/pkg/aka"
	"github.com/backkem/triaka/pkg/node"
	"github.com/ogier/pflag"
	"github.com/sauerbraten/jsonfile"
)

// ErrHelp is returned by ParseFlags when -h or --help was given.
var ErrHelp = pflag.ErrHelp

// Options holds the settings of one role. A config file supplies values
// that flags given on the command line override.
type Options struct {
	// ID is the role identity.
	ID string `json:"id"`

	// Listen is the address to serve on. Unused by the client.
	Listen string `json:"listen"`

	// Upstream is the "host:port" of the Server (gateway) or the Gateway
	// (client). Unused by the server.
	Upstream string `json:"upstream"`

	// Instance selects a discovered upstream by instance name.
	Instance string `json:"instance"`

	// Discover resolves the upstream over mDNS when Upstream is empty.
	Discover bool `json:"discover"`

	// Advertise publishes the role over mDNS.
	Advertise bool `json:"advertise"`

	// Peers is the file holding the table of registered callers.
	// If empty, the table lives in memory.
	Peers string `json:"peers"`

	// Credentials is the file holding the role's registration.
	// If empty, the role registers on every start.
	Credentials string `json:"credentials"`

	// Timeout bounds each network exchange, e.g. "30s".
	Timeout string `json:"timeout"`

	// LogLevel is one of disable, error, warn, info, debug, trace.
	LogLevel string `json:"log_level"`

	// Logins is the number of login attempts the client makes.
	Logins int `json:"logins"`
}

// DefaultOptions returns the defaults for role.
func DefaultOptions(role aka.Role) Options {
	o := Options{
		ID:       role.DefaultID(),
		LogLevel: "info",
		Logins:   1,
	}
	switch role {
	case aka.RoleServer:
		o.Listen = fmt.Sprintf(":%d", node.DefaultServerPort)
	case aka.RoleGateway:
		o.Listen = fmt.Sprintf(":%d", node.DefaultGatewayPort)
	}
	return o
}

// TimeoutDuration parses Timeout. Empty selects the node default.
func (o *Options) TimeoutDuration() (time.Duration, error) {
	if o.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(o.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout %q: %w", o.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout %q: negative", o.Timeout)
	}
	return d, nil
}

// ParseFlags parses args for role. Flags are:
//
//	-c, --config       JSON config file (// comments allowed)
//	    --id           role identity
//	    --listen       listen address (server, gateway)
//	    --server       Server address (gateway)
//	    --gateway      Gateway address (client)
//	    --instance     upstream instance name for discovery
//	-d, --discover     discover the upstream over mDNS
//	-a, --advertise    advertise over mDNS (server, gateway)
//	    --peers        peer table file (server, gateway)
//	    --credentials  registration file (gateway, client)
//	-t, --timeout      exchange timeout
//	-l, --log-level    log level
//	-n, --logins       login attempts (client)
//
// Long flags take their value as --name=value or --name value.
func ParseFlags(role aka.Role, args []string, output io.Writer) (Options, error) {
	defaults := DefaultOptions(role)
	var flags, file Options
	var configPath string

	fs := pflag.NewFlagSet(role.String(), pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: aka-%s [OPTION]...\nFlags:\n", strings.ToLower(role.String()))
		fs.PrintDefaults()
	}

	fs.StringVarP(&configPath, "config", "c", "", "JSON config file")
	fs.StringVar(&flags.ID, "id", defaults.ID, "role identity")
	fs.StringVarP(&flags.Timeout, "timeout", "t", "", "exchange timeout (e.g. 5s)")
	fs.StringVarP(&flags.LogLevel, "log-level", "l", defaults.LogLevel, "log level: disable, error, warn, info, debug, trace")

	switch role {
	case aka.RoleServer:
		fs.StringVar(&flags.Listen, "listen", defaults.Listen, "listen address")
		fs.BoolVarP(&flags.Advertise, "advertise", "a", false, "advertise over mDNS")
		fs.StringVar(&flags.Peers, "peers", "", "gateway table file (empty = in-memory)")
	case aka.RoleGateway:
		fs.StringVar(&flags.Listen, "listen", defaults.Listen, "listen address")
		fs.StringVar(&flags.Upstream, "server", "", "server address (default "+node.DefaultServerAddr+")")
		fs.StringVar(&flags.Instance, "instance", "", "server instance name for discovery")
		fs.BoolVarP(&flags.Discover, "discover", "d", false, "discover the server over mDNS")
		fs.BoolVarP(&flags.Advertise, "advertise", "a", false, "advertise over mDNS")
		fs.StringVar(&flags.Peers, "peers", "", "client table file (empty = in-memory)")
		fs.StringVar(&flags.Credentials, "credentials", "", "registration file (empty = register on start)")
	case aka.RoleClient:
		fs.StringVar(&flags.Upstream, "gateway", "", "gateway address (default "+node.DefaultGatewayAddr+")")
		fs.StringVar(&flags.Instance, "instance", "", "gateway instance name for discovery")
		fs.BoolVarP(&flags.Discover, "discover", "d", false, "discover the gateway over mDNS")
		fs.StringVar(&flags.Credentials, "credentials", "", "registration file (empty = register on start)")
		fs.IntVarP(&flags.Logins, "logins", "n", defaults.Logins, "login attempts")
	}

	if err := fs.Parse(joinLongValues(fs, args)); err != nil {
		return Options{}, err
	}
	if fs.NArg() > 0 {
		return Options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := defaults
	if configPath != "" {
		if err := loadFile(configPath, &file); err != nil {
			return Options{}, err
		}
		opts.merge(file)
	}

	set := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) { set[f.Name] = true })
	opts.override(flags, set)

	if opts.Logins < 1 {
		return Options{}, fmt.Errorf("logins must be positive, got %d", opts.Logins)
	}
	if _, err := opts.TimeoutDuration(); err != nil {
		return Options{}, err
	}
	if _, err := ParseLogLevel(opts.LogLevel); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// joinLongValues rewrites "--name value" as "--name=value" for known
// non-boolean flags. pflag only reads a long flag's value after '='.
func joinLongValues(fs *pflag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		name, ok := strings.CutPrefix(arg, "--")
		if !ok || name == "" || strings.Contains(name, "=") || i+1 == len(args) {
			out = append(out, arg)
			continue
		}
		f := fs.Lookup(name)
		if f == nil || isBoolFlag(f) {
			out = append(out, arg)
			continue
		}
		i++
		out = append(out, arg+"="+args[i])
	}
	return out
}

func isBoolFlag(f *pflag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func loadFile(path string, o *Options) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if err := jsonfile.ParseFile(path, o); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// merge copies the non-zero fields of file into o.
func (o *Options) merge(file Options) {
	setString(&o.ID, file.ID)
	setString(&o.Listen, file.Listen)
	setString(&o.Upstream, file.Upstream)
	setString(&o.Instance, file.Instance)
	setString(&o.Peers, file.Peers)
	setString(&o.Credentials, file.Credentials)
	setString(&o.Timeout, file.Timeout)
	setString(&o.LogLevel, file.LogLevel)
	o.Discover = o.Discover || file.Discover
	o.Advertise = o.Advertise || file.Advertise
	if file.Logins != 0 {
		o.Logins = file.Logins
	}
}

// override copies the fields of flags whose flag was given.
func (o *Options) override(flags Options, set map[string]bool) {
	for name, dst := range map[string]struct {
		to   *string
		from string
	}{
		"id":          {&o.ID, flags.ID},
		"listen":      {&o.Listen, flags.Listen},
		"server":      {&o.Upstream, flags.Upstream},
		"gateway":     {&o.Upstream, flags.Upstream},
		"instance":    {&o.Instance, flags.Instance},
		"peers":       {&o.Peers, flags.Peers},
		"credentials": {&o.Credentials, flags.Credentials},
		"timeout":     {&o.Timeout, flags.Timeout},
		"log-level":   {&o.LogLevel, flags.LogLevel},
	} {
		if set[name] {
			*dst.to = dst.from
		}
	}
	if set["discover"] {
		o.Discover = flags.Discover
	}
	if set["advertise"] {
		o.Advertise = flags.Advertise
	}
	if set["logins"] {
		o.Logins = flags.Logins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// IsHelp reports whether err came from -h or --help.
func IsHelp(err error) bool {
	return errors.Is(err, ErrHelp)
}
