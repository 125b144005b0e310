// Package bundle moves stored conditions and fulfillments between stores as
// deterministic TAR archives.
//
// Layout:
//
//	blocks/<cid>   raw object bytes, one entry per CID, sorted
//	index.json     optional, non-authoritative: block kinds and labels
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/cryptoconditions/cc"
	"xdao.co/cryptoconditions/cidutil"
	"xdao.co/cryptoconditions/store"
)

// FormatVersion is the current index schema version.
const FormatVersion = 1

// Block kinds recorded in the index.
const (
	KindCondition   = "condition"
	KindFulfillment = "fulfillment"
	KindRaw         = "raw"
)

var epoch0 = time.Unix(0, 0).UTC()

type ExportOptions struct {
	// Labels maps names (e.g. "hold/<id>/condition") to exported CIDs.
	Labels map[string]cid.Cid
	// IncludeIndex controls whether index.json is written.
	IncludeIndex bool
}

// Export writes the blocks for ids to w. Output bytes depend only on the set
// of ids and the options, not on their order.
func Export(ctx context.Context, w io.Writer, cas store.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return errors.New("bundle: nil CAS")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return store.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	fail := func(err error) error {
		_ = tw.Close()
		return err
	}

	blocks := make([]indexBlock, 0, len(names))
	for _, s := range names {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		id := uniq[s]
		b, err := cas.Get(ctx, id)
		if err != nil {
			return fail(fmt.Errorf("bundle: get %s: %w", s, err))
		}
		if !cidutil.Matches(id, b) {
			return fail(store.ErrCIDMismatch)
		}
		if err := writeFile(tw, "blocks/"+s, b); err != nil {
			return fail(err)
		}
		blocks = append(blocks, indexBlock{CID: s, Size: len(b), Kind: Classify(b)})
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:   FormatVersion,
			CIDCodec:  "raw",
			Multihash: "sha2-256",
			Blocks:    blocks,
		}
		labels, err := sortedLabels(opts.Labels, uniq)
		if err != nil {
			return fail(err)
		}
		idx.Labels = labels

		b, err := json.Marshal(idx)
		if err != nil {
			return fail(err)
		}
		if err := writeFile(tw, "index.json", append(b, '\n')); err != nil {
			return fail(err)
		}
	}
	return tw.Close()
}

func sortedLabels(in map[string]cid.Cid, exported map[string]cid.Cid) ([]indexLabel, error) {
	if len(in) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(in))
	for k := range in {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]indexLabel, 0, len(names))
	for _, k := range names {
		if k == "" {
			return nil, errors.New("bundle: empty label name")
		}
		v := in[k]
		if !v.Defined() {
			return nil, store.ErrInvalidCID
		}
		if _, ok := exported[v.String()]; !ok {
			return nil, fmt.Errorf("bundle: label %q points at %s which is not exported", k, v)
		}
		out = append(out, indexLabel{Name: k, CID: v.String()})
	}
	return out, nil
}

// Classify reports whether b is a canonical condition, a canonical
// fulfillment or neither.
func Classify(b []byte) string {
	if _, err := cc.DecodeCondition(b); err == nil {
		return KindCondition
	}
	if _, err := cc.DecodeFulfillment(b); err == nil {
		return KindFulfillment
	}
	return KindRaw
}

type ImportOptions struct {
	// IgnoreUnknown skips unknown entries instead of failing.
	IgnoreUnknown bool
	// RequireCryptoConditions rejects blocks that are neither a canonical
	// condition nor a canonical fulfillment.
	RequireCryptoConditions bool
}

// Import reads a bundle from r and stores every block in cas. Each block must
// match the CID in its entry name. It returns the imported CIDs in archive
// order.
func Import(ctx context.Context, r io.Reader, cas store.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if cas == nil {
		return nil, errors.New("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var imported []cid.Cid

	for {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		h, err := tr.Next()
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return imported, fmt.Errorf("bundle: invalid entry path %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected entry type %v (%s)", h.Typeflag, name)
		}

		if name == "index.json" {
			continue
		}
		if !strings.HasPrefix(name, "blocks/") {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry %s", name)
		}

		id, err := cid.Decode(strings.TrimPrefix(name, "blocks/"))
		if err != nil || !id.Defined() {
			return imported, store.ErrInvalidCID
		}
		payload, err := io.ReadAll(tr)
		if err != nil {
			return imported, err
		}
		if !cidutil.Matches(id, payload) {
			return imported, store.ErrCIDMismatch
		}
		if _, dup := seen[id.String()]; dup {
			return imported, fmt.Errorf("bundle: duplicate block %s", id)
		}
		seen[id.String()] = struct{}{}

		if opts.RequireCryptoConditions && Classify(payload) == KindRaw {
			return imported, fmt.Errorf("bundle: block %s is not a condition or fulfillment", id)
		}

		putID, err := cas.Put(ctx, payload)
		if err != nil {
			return imported, err
		}
		if !putID.Equals(id) {
			return imported, store.ErrCIDMismatch
		}
		imported = append(imported, id)
	}
}

type indexJSON struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Blocks    []indexBlock `json:"blocks"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
	Kind string `json:"kind"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
