package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"xdao.co/cryptoconditions/cc"
)

// errInvalid makes the process exit non-zero after the report is printed.
var errInvalid = errors.New("fulfillment is not valid")

func (a *app) conditionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "condition <cc: URI | condition hex | cf: URI | fulfillment hex>",
		Short: "Decode a condition, or derive the condition of a fulfillment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c, err := parseCondition(args[0]); err == nil {
				r, err := conditionReport(c)
				if err != nil {
					return err
				}
				return a.print(r)
			}
			f, err := parseFulfillment(args[0])
			if err != nil {
				return fmt.Errorf("not a condition or fulfillment: %w", err)
			}
			r, err := fulfillmentReport(f)
			if err != nil {
				return err
			}
			return a.print(r)
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	var fulfillment, condition, msgText, msgHex string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a fulfillment for a message, optionally against a condition",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fulfillment == "" {
				return errors.New("--fulfillment is required")
			}
			msg, err := messageBytes(msgText, msgHex)
			if err != nil {
				return err
			}
			f, err := parseFulfillment(fulfillment)
			if err != nil {
				return err
			}

			var ok bool
			if condition != "" {
				c, err := parseCondition(condition)
				if err != nil {
					return fmt.Errorf("--condition: %w", err)
				}
				ok, err = cc.ValidateAgainst(f, c, msg)
				if err != nil {
					return err
				}
			} else {
				ok, err = cc.Validate(f, msg)
				if err != nil {
					return err
				}
			}

			r, err := fulfillmentReport(f)
			if err != nil {
				return err
			}
			r.Valid = &ok
			if err := a.print(r); err != nil {
				return err
			}
			if !ok {
				a.logger.Info("validation failed", "type", r.Type, "condition", r.Condition)
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fulfillment, "fulfillment", "", "Fulfillment (cf: URI or hex)")
	cmd.Flags().StringVar(&condition, "condition", "", "Expected condition (cc: URI or hex)")
	addMessageFlags(cmd, &msgText, &msgHex)
	return cmd
}
