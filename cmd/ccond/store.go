package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"xdao.co/cryptoconditions/cidutil"
	"xdao.co/cryptoconditions/store"
	"xdao.co/cryptoconditions/store/bundle"

	_ "xdao.co/cryptoconditions/store/grpccas"
	_ "xdao.co/cryptoconditions/store/localfs"
	_ "xdao.co/cryptoconditions/store/rediscas"
)

func (a *app) storeCmd() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Put and get objects in the configured content-addressed store",
	}
	cmd.PersistentFlags().StringVar(&backend, "backend", "", "Configured backend name or id to prefer")

	put := &cobra.Command{
		Use:   "put <file|->",
		Short: "Store a file and print its CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), backend, func(ctx context.Context, cas store.CAS) error {
				id, err := cas.Put(ctx, data)
				if err != nil {
					return err
				}
				a.logger.Debug("stored object", "cid", id.String(), "bytes", len(data))
				fmt.Fprintln(a.out, id.String())
				return nil
			})
		},
	}

	var outFile string
	get := &cobra.Command{
		Use:   "get <cid>",
		Short: "Fetch an object by CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cidutil.Parse(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), backend, func(ctx context.Context, cas store.CAS) error {
				data, err := cas.Get(ctx, id)
				if err != nil {
					return err
				}
				if outFile == "" || outFile == "-" {
					_, err = a.out.Write(data)
					return err
				}
				return os.WriteFile(outFile, data, 0o644)
			})
		},
	}
	get.Flags().StringVarP(&outFile, "out", "o", "", "Write to file instead of stdout")

	var bundleOut string
	export := &cobra.Command{
		Use:   "export <cid>...",
		Short: "Write objects to a deterministic TAR bundle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]cid.Cid, 0, len(args))
			for _, s := range args {
				id, err := cidutil.Parse(s)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return a.withStore(cmd.Context(), backend, func(ctx context.Context, cas store.CAS) error {
				w := a.out
				if bundleOut != "" && bundleOut != "-" {
					f, err := os.Create(bundleOut)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return bundle.Export(ctx, w, cas, ids, bundle.ExportOptions{IncludeIndex: true})
			})
		},
	}
	export.Flags().StringVarP(&bundleOut, "out", "o", "", "Write the bundle to file instead of stdout")

	var strict bool
	imp := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a bundle and print the imported CIDs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), backend, func(ctx context.Context, cas store.CAS) error {
				ids, err := bundle.Import(ctx, bytes.NewReader(data), cas, bundle.ImportOptions{RequireCryptoConditions: strict})
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(a.out, id.String())
				}
				a.logger.Info("bundle imported", "blocks", len(ids))
				return nil
			})
		},
	}
	imp.Flags().BoolVar(&strict, "strict", false, "Reject blocks that are not conditions or fulfillments")

	cmd.AddCommand(put, get, export, imp)
	return cmd
}

func (a *app) withStore(ctx context.Context, preferred string, fn func(context.Context, store.CAS) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cas, closeFn, err := a.cfg.Store.Open(ctx, preferred)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, cas)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		if stdin == nil {
			return nil, errors.New("no stdin available")
		}
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
