package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/marcelsud/webhook-relay/health"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/relay/httpclient"
	"github.com/mitchellh/cli"
	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
)

const (
	ExitSuccess = 0
	ExitErr     = 1
)

// env is what every command needs from the configuration
type env struct {
	cfg       *config.Config
	logger    zerolog.Logger
	validator *endpoint.Validator
	registry  *endpoint.Registry
	sender    *httpclient.Client
}

func newEnv() (*env, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	v := endpoint.NewValidator(cfg.AllowedDomains())
	registry, err := endpoint.NewRegistryFromConfig(cfg, v)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:       cfg,
		logger:    zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
		validator: v,
		registry:  registry,
		sender:    httpclient.New(),
	}, nil
}

// target resolves -endpoint or -url. URLs given here come from the operator.
func (e *env) target(id, rawURL, secret string) (endpoint.Endpoint, error) {
	if rawURL == "" {
		ep, err := e.registry.Get(id)
		if err != nil {
			return endpoint.Endpoint{}, err
		}
		if secret != "" {
			ep.Secret = secret
		}
		return ep, nil
	}
	canonical, err := e.validator.ValidateOperator(rawURL)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	return endpoint.Endpoint{ID: "cli", Name: "cli", URL: canonical, Secret: secret}, nil
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

// SendCmd relays one text message and prints the result
type SendCmd struct {
	flags    *flag.FlagSet
	id       string
	url      string
	secret   string
	message  string
	session  string
	userID   string
	userName string
}

var _ cli.Command = (*SendCmd)(nil)

func newSendCmd() (cli.Command, error) {
	c := &SendCmd{flags: flag.NewFlagSet("send", flag.ContinueOnError)}
	c.flags.StringVar(&c.id, "endpoint", endpoint.DefaultID, "Registered endpoint id")
	c.flags.StringVar(&c.url, "url", "", "Webhook URL, overrides -endpoint")
	c.flags.StringVar(&c.secret, "secret", "", "Webhook secret")
	c.flags.StringVar(&c.message, "message", "Hello from webhook-relay", "Message text")
	c.flags.StringVar(&c.session, "session", "", "Session id, random when empty")
	c.flags.StringVar(&c.userID, "user", "cli", "User id")
	c.flags.StringVar(&c.userName, "name", "CLI", "User name")
	return c, nil
}

func (c *SendCmd) Help() string {
	return "Usage: webhook-relay send [-endpoint id | -url url] [-secret s] [-message text]\n\n" + c.Synopsis()
}

func (c *SendCmd) Synopsis() string {
	return "Relay a text message to a webhook and print the normalized reply"
}

func (c *SendCmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return ExitErr
	}
	e, err := newEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitErr
	}
	ep, err := e.target(c.id, c.url, c.secret)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitErr
	}

	session := c.session
	if session == "" {
		session = uuid.NewString()
	}
	req := relay.Request{
		SessionID: session,
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		User:      relay.User{ID: c.userID, Name: c.userName},
		Message:   relay.Message{Type: relay.Text, Content: c.message},
	}

	s := relay.NewService(e.cfg, e.sender, e.validator, e.logger)
	res := s.SendRequest(context.Background(), ep, ep.Secret, req)
	printJSON(res)
	if !res.Success {
		return ExitErr
	}
	return ExitSuccess
}

// ProbeCmd runs a single health probe
type ProbeCmd struct {
	flags  *flag.FlagSet
	id     string
	url    string
	secret string
}

var _ cli.Command = (*ProbeCmd)(nil)

func newProbeCmd() (cli.Command, error) {
	c := &ProbeCmd{flags: flag.NewFlagSet("probe", flag.ContinueOnError)}
	c.flags.StringVar(&c.id, "endpoint", endpoint.DefaultID, "Registered endpoint id")
	c.flags.StringVar(&c.url, "url", "", "Webhook URL, overrides -endpoint")
	c.flags.StringVar(&c.secret, "secret", "", "Webhook secret")
	return c, nil
}

func (c *ProbeCmd) Help() string {
	return "Usage: webhook-relay probe [-endpoint id | -url url] [-secret s]\n\n" + c.Synopsis()
}

func (c *ProbeCmd) Synopsis() string {
	return "Probe a webhook and report whether it is reachable"
}

func (c *ProbeCmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return ExitErr
	}
	e, err := newEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitErr
	}
	ep, err := e.target(c.id, c.url, c.secret)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitErr
	}

	v := health.NewService(e.cfg, e.sender, e.logger).Probe(context.Background(), health.Target{URL: ep.URL, Secret: ep.Secret})
	printJSON(v)
	if !v.Healthy {
		return ExitErr
	}
	return ExitSuccess
}

// EndpointsCmd lists the registered endpoints without their secrets
type EndpointsCmd struct{}

var _ cli.Command = (*EndpointsCmd)(nil)

func newEndpointsCmd() (cli.Command, error) {
	return &EndpointsCmd{}, nil
}

func (c *EndpointsCmd) Help() string {
	return "Usage: webhook-relay endpoints\n\n" + c.Synopsis()
}

func (c *EndpointsCmd) Synopsis() string {
	return "List the configured endpoints"
}

func (c *EndpointsCmd) Run(_ []string) int {
	e, err := newEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitErr
	}

	all := e.registry.List()
	if len(all) == 0 {
		fmt.Println("no endpoints configured")
		return ExitSuccess
	}
	for _, ep := range all {
		secret := ""
		if ep.HasSecret() {
			secret = " (secret)"
		}
		fmt.Printf("%-16s %-24s %s%s\n", ep.ID, ep.Name, ep.URL, secret)
	}
	return ExitSuccess
}
