// Command ccond builds, inspects and validates crypto-conditions.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xdao.co/cryptoconditions/cc"
	"xdao.co/cryptoconditions/config"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	envFile    string
	output     string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "ccond",
		Short:         "Crypto-conditions toolkit",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (or set CCOND_CONFIG)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading CCOND_* variables")
	root.PersistentFlags().StringVar(&a.output, "output", "text", "Output format: text, json")

	root.AddCommand(
		a.preimageCmd(),
		a.ed25519Cmd(),
		a.rsaCmd(),
		a.prefixCmd(),
		a.thresholdCmd(),
		a.conditionCmd(),
		a.validateCmd(),
		a.storeCmd(),
		versionCmd(out),
	)
	return root
}

func (a *app) init() error {
	switch a.output {
	case "text", "json":
	default:
		return fmt.Errorf("--output must be text or json, got %q", a.output)
	}
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	path := a.configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(a.errOut)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func versionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "ccond version %s\n", version)
		},
	}
}

// report is what the build and inspect commands print.
type report struct {
	Type                 string `json:"type"`
	Condition            string `json:"condition"`
	ConditionHex         string `json:"condition_hex"`
	ConditionCID         string `json:"condition_cid,omitempty"`
	MaxFulfillmentLength int    `json:"max_fulfillment_length"`
	Fulfillment          string `json:"fulfillment,omitempty"`
	FulfillmentURI       string `json:"fulfillment_uri,omitempty"`
	Valid                *bool  `json:"valid,omitempty"`
}

func conditionReport(c cc.Condition) (report, error) {
	enc, err := c.Encode()
	if err != nil {
		return report{}, err
	}
	id, err := c.CID()
	if err != nil {
		return report{}, err
	}
	return report{
		Type:                 c.Type().String(),
		Condition:            c.URI(),
		ConditionHex:         hex.EncodeToString(enc),
		ConditionCID:         id.String(),
		MaxFulfillmentLength: c.MaxFulfillmentLength(),
	}, nil
}

func fulfillmentReport(f cc.Fulfillment) (report, error) {
	c, err := cc.Derive(f)
	if err != nil {
		return report{}, err
	}
	r, err := conditionReport(c)
	if err != nil {
		return report{}, err
	}
	enc, err := cc.EncodeFulfillment(f)
	if err != nil {
		return report{}, err
	}
	uri, err := cc.FulfillmentURI(f)
	if err != nil {
		return report{}, err
	}
	r.Fulfillment = hex.EncodeToString(enc)
	r.FulfillmentURI = uri
	return r, nil
}

func (a *app) print(r report) error {
	if a.output == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(a.out, "type: %s\n", r.Type)
	fmt.Fprintf(a.out, "condition: %s\n", r.Condition)
	fmt.Fprintf(a.out, "condition-hex: %s\n", r.ConditionHex)
	if r.ConditionCID != "" {
		fmt.Fprintf(a.out, "condition-cid: %s\n", r.ConditionCID)
	}
	fmt.Fprintf(a.out, "max-fulfillment-length: %d\n", r.MaxFulfillmentLength)
	if r.Fulfillment != "" {
		fmt.Fprintf(a.out, "fulfillment: %s\n", r.Fulfillment)
		fmt.Fprintf(a.out, "fulfillment-uri: %s\n", r.FulfillmentURI)
	}
	if r.Valid != nil {
		fmt.Fprintf(a.out, "valid: %t\n", *r.Valid)
	}
	return nil
}

// parseFulfillment accepts a "cf:" URI or hex-encoded fulfillment bytes.
func parseFulfillment(s string) (cc.Fulfillment, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "cf:") {
		return cc.ParseFulfillmentURI(s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("fulfillment must be a cf: URI or hex: %w", err)
	}
	return cc.DecodeFulfillment(b)
}

// parseCondition accepts a "cc:" URI or hex-encoded condition bytes.
func parseCondition(s string) (cc.Condition, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "cc:") {
		return cc.ParseConditionURI(s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return cc.Condition{}, fmt.Errorf("condition must be a cc: URI or hex: %w", err)
	}
	return cc.DecodeCondition(b)
}

// messageBytes returns the message given either as text or hex.
func messageBytes(text, hexText string) ([]byte, error) {
	if text != "" && hexText != "" {
		return nil, fmt.Errorf("--message and --message-hex are mutually exclusive")
	}
	if hexText != "" {
		b, err := hex.DecodeString(hexText)
		if err != nil {
			return nil, fmt.Errorf("--message-hex: %w", err)
		}
		return b, nil
	}
	return []byte(text), nil
}

func addMessageFlags(cmd *cobra.Command, text, hexText *string) {
	cmd.Flags().StringVar(text, "message", "", "Message as text")
	cmd.Flags().StringVar(hexText, "message-hex", "", "Message as hex")
}
