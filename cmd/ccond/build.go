package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"xdao.co/cryptoconditions/cc"
	"xdao.co/cryptoconditions/keys"
)

func (a *app) preimageCmd() *cobra.Command {
	var preimageHex string
	cmd := &cobra.Command{
		Use:   "preimage [text]",
		Short: "Build a PREIMAGE-SHA-256 fulfillment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var preimage []byte
			switch {
			case preimageHex != "" && len(args) > 0:
				return errors.New("give the preimage as text or --hex, not both")
			case preimageHex != "":
				b, err := hex.DecodeString(preimageHex)
				if err != nil {
					return fmt.Errorf("--hex: %w", err)
				}
				preimage = b
			case len(args) > 0:
				preimage = []byte(args[0])
			}
			r, err := fulfillmentReport(cc.NewPreimage(preimage))
			if err != nil {
				return err
			}
			return a.print(r)
		},
	}
	cmd.Flags().StringVar(&preimageHex, "hex", "", "Preimage as hex")
	return cmd
}

func (a *app) ed25519Cmd() *cobra.Command {
	var seedHex, label, msgText, msgHex string
	cmd := &cobra.Command{
		Use:   "ed25519",
		Short: "Sign a message and build an ED25519-SHA-256 fulfillment",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := messageBytes(msgText, msgHex)
			if err != nil {
				return err
			}
			var priv []byte
			if seedHex == "" {
				if label != "" {
					return errors.New("--label requires --seed-hex")
				}
				_, priv, err = keys.GenerateEd25519(rand.Reader)
				if err != nil {
					return err
				}
				a.logger.Warn("no --seed-hex given, signed with an ephemeral key")
			} else {
				seed, err := keys.ParseSeedHex(seedHex)
				if err != nil {
					return err
				}
				if label != "" {
					seed, err = keys.DeriveSeed(keys.Default{}, seed, label)
					if err != nil {
						return err
					}
				}
				_, priv, err = keys.Ed25519FromSeed(seed)
				if err != nil {
					return err
				}
			}
			f, err := cc.SignEd25519(nil, priv, msg)
			if err != nil {
				return err
			}
			r, err := fulfillmentReport(f)
			if err != nil {
				return err
			}
			return a.print(r)
		},
	}
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "32-byte ed25519 seed (64 hex chars)")
	cmd.Flags().StringVar(&label, "label", "", "Derive a child seed from --seed-hex for this label")
	addMessageFlags(cmd, &msgText, &msgHex)
	return cmd
}

func (a *app) rsaCmd() *cobra.Command {
	var keyFile, msgText, msgHex string
	var bits int
	cmd := &cobra.Command{
		Use:   "rsa",
		Short: "Sign a message with RSA-PSS and build an RSA-SHA-256 fulfillment",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := messageBytes(msgText, msgHex)
			if err != nil {
				return err
			}
			var priv *rsa.PrivateKey
			if keyFile != "" {
				priv, err = readRSAKey(keyFile)
			} else {
				a.logger.Warn("no --key given, signing with an ephemeral key", "bits", bits)
				priv, err = keys.GenerateRSA(rand.Reader, bits)
			}
			if err != nil {
				return err
			}
			f, err := cc.SignRsaSha256(nil, priv, msg)
			if err != nil {
				return err
			}
			r, err := fulfillmentReport(f)
			if err != nil {
				return err
			}
			return a.print(r)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "PEM-encoded RSA private key (PKCS#1 or PKCS#8)")
	cmd.Flags().IntVar(&bits, "bits", 2048, "Modulus size for an ephemeral key when --key is not given")
	addMessageFlags(cmd, &msgText, &msgHex)
	return cmd
}

func readRSAKey(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block found", path)
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	priv, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s: not an RSA private key", path)
	}
	return priv, nil
}

func (a *app) prefixCmd() *cobra.Command {
	var prefixText, prefixHex, sub string
	cmd := &cobra.Command{
		Use:   "prefix",
		Short: "Wrap a fulfillment in a PREFIX-SHA-256 fulfillment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sub == "" {
				return errors.New("--sub is required")
			}
			prefix, err := messageBytes(prefixText, prefixHex)
			if err != nil {
				return err
			}
			subF, err := parseFulfillment(sub)
			if err != nil {
				return fmt.Errorf("--sub: %w", err)
			}
			r, err := fulfillmentReport(cc.NewPrefixSha256(prefix, subF))
			if err != nil {
				return err
			}
			return a.print(r)
		},
	}
	cmd.Flags().StringVar(&prefixText, "prefix", "", "Prefix as text")
	cmd.Flags().StringVar(&prefixHex, "prefix-hex", "", "Prefix as hex")
	cmd.Flags().StringVar(&sub, "sub", "", "Subfulfillment (cf: URI or hex)")
	return cmd
}

func (a *app) thresholdCmd() *cobra.Command {
	var threshold uint32
	var withFulfillment, withCondition []string
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Build a THRESHOLD-SHA-256 fulfillment from weighted members",
		Example: "  ccond threshold --threshold 2 \\\n" +
			"    --member 1=cf:0:... --member 1=cf:0:... --member-condition 1=cc:4:20:...:96",
		RunE: func(cmd *cobra.Command, args []string) error {
			members := make([]cc.ThresholdMember, 0, len(withFulfillment)+len(withCondition))
			for _, spec := range withFulfillment {
				w, v, err := splitWeighted(spec)
				if err != nil {
					return fmt.Errorf("--member: %w", err)
				}
				f, err := parseFulfillment(v)
				if err != nil {
					return fmt.Errorf("--member %q: %w", spec, err)
				}
				members = append(members, cc.WeightedFulfillment(w, f))
			}
			for _, spec := range withCondition {
				w, v, err := splitWeighted(spec)
				if err != nil {
					return fmt.Errorf("--member-condition: %w", err)
				}
				c, err := parseCondition(v)
				if err != nil {
					return fmt.Errorf("--member-condition %q: %w", spec, err)
				}
				members = append(members, cc.WeightedCondition(w, c))
			}
			f, err := cc.NewThresholdSha256(threshold, members)
			if err != nil {
				return err
			}
			a.logger.Debug("threshold built", "threshold", threshold, "members", len(members))
			r, err := fulfillmentReport(f)
			if err != nil {
				return err
			}
			return a.print(r)
		},
	}
	cmd.Flags().Uint32Var(&threshold, "threshold", 1, "Required total weight")
	cmd.Flags().StringArrayVar(&withFulfillment, "member", nil, "Member with a fulfillment, as weight=<cf: URI or hex> (repeatable)")
	cmd.Flags().StringArrayVar(&withCondition, "member-condition", nil, "Member with only a condition, as weight=<cc: URI or hex> (repeatable)")
	return cmd
}

// splitWeighted parses "weight=value"; a bare value has weight 1.
func splitWeighted(spec string) (uint32, string, error) {
	w, v, ok := strings.Cut(spec, "=")
	if !ok {
		return 1, spec, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(w), 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("invalid weight in %q", spec)
	}
	return uint32(n), v, nil
}
