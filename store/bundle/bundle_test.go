package bundle_test

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/cryptoconditions/cc"
	"xdao.co/cryptoconditions/cidutil"
	"xdao.co/cryptoconditions/store"
	"xdao.co/cryptoconditions/store/bundle"
	"xdao.co/cryptoconditions/store/localfs"
)

func TestBundle_ExportIsDeterministic(t *testing.T) {
	ctx := context.Background()
	cas, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id1, err := cas.Put(ctx, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := cas.Put(ctx, []byte("world"))
	if err != nil {
		t.Fatal(err)
	}

	var outA, outB bytes.Buffer
	if err := bundle.Export(ctx, &outA, cas, []cid.Cid{id2, id1, id2}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}
	if err := bundle.Export(ctx, &outB, cas, []cid.Cid{id1, id2}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(outA.Bytes(), outB.Bytes()) {
		t.Fatalf("expected deterministic bundle bytes")
	}
}

func TestBundle_ImportRoundTripAndIndex(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemory()

	f := cc.NewPreimage([]byte("bundle me"))
	condID, err := store.PutFulfillment(ctx, src, f)
	if err != nil {
		t.Fatal(err)
	}
	c, err := cc.Derive(f)
	if err != nil {
		t.Fatal(err)
	}
	cID, err := store.PutCondition(ctx, src, c)
	if err != nil {
		t.Fatal(err)
	}
	rawID, err := src.Put(ctx, []byte("opaque"))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	err = bundle.Export(ctx, &buf, src, []cid.Cid{condID, cID, rawID}, bundle.ExportOptions{
		IncludeIndex: true,
		Labels:       map[string]cid.Cid{"hold/x/condition": cID},
	})
	if err != nil {
		t.Fatal(err)
	}

	idx := readIndex(t, buf.Bytes())
	kinds := map[string]string{}
	for _, b := range idx.Blocks {
		kinds[b.CID] = b.Kind
	}
	if kinds[cID.String()] != bundle.KindCondition || kinds[condID.String()] != bundle.KindFulfillment || kinds[rawID.String()] != bundle.KindRaw {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
	if len(idx.Labels) != 1 || idx.Labels[0].CID != cID.String() {
		t.Fatalf("unexpected labels: %+v", idx.Labels)
	}

	dst := store.NewMemory()
	ids, err := bundle.Import(ctx, bytes.NewReader(buf.Bytes()), dst, bundle.ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || dst.Len() != 3 {
		t.Fatalf("imported %d blocks, store holds %d", len(ids), dst.Len())
	}
	got, err := store.GetCondition(ctx, dst, cID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(c) {
		t.Fatalf("condition mismatch after import")
	}

	_, err = bundle.Import(ctx, bytes.NewReader(buf.Bytes()), store.NewMemory(), bundle.ImportOptions{RequireCryptoConditions: true})
	if err == nil {
		t.Fatalf("expected raw block to be rejected")
	}
}

func TestBundle_ExportRejectsDanglingLabel(t *testing.T) {
	ctx := context.Background()
	cas := store.NewMemory()
	id, err := cas.Put(ctx, []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	other, err := cidutil.CIDv1RawSHA256CID([]byte("b"))
	if err != nil {
		t.Fatal(err)
	}
	err = bundle.Export(ctx, io.Discard, cas, []cid.Cid{id}, bundle.ExportOptions{
		IncludeIndex: true,
		Labels:       map[string]cid.Cid{"x": other},
	})
	if err == nil {
		t.Fatalf("expected error for label outside the bundle")
	}
}

func TestBundle_ExportMissingBlock(t *testing.T) {
	missing, err := cidutil.CIDv1RawSHA256CID([]byte("missing"))
	if err != nil {
		t.Fatal(err)
	}
	err = bundle.Export(context.Background(), io.Discard, store.NewMemory(), []cid.Cid{missing}, bundle.ExportOptions{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBundle_ImportRejectsCIDMismatch(t *testing.T) {
	otherCID, err := cidutil.CIDv1RawSHA256CID([]byte("other"))
	if err != nil {
		t.Fatal(err)
	}
	// Entry name says "other" but the bytes are "good".
	b := makeTar(t, "blocks/"+otherCID.String(), []byte("good"))
	_, err = bundle.Import(context.Background(), bytes.NewReader(b), store.NewMemory(), bundle.ImportOptions{})
	if !errors.Is(err, store.ErrCIDMismatch) {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}

func TestBundle_ImportUnknownEntries(t *testing.T) {
	b := makeTar(t, "notes/readme.txt", []byte("hi"))
	if _, err := bundle.Import(context.Background(), bytes.NewReader(b), store.NewMemory(), bundle.ImportOptions{}); err == nil {
		t.Fatalf("expected unknown entry to fail closed")
	}
	if _, err := bundle.Import(context.Background(), bytes.NewReader(b), store.NewMemory(), bundle.ImportOptions{IgnoreUnknown: true}); err != nil {
		t.Fatalf("IgnoreUnknown: %v", err)
	}

	b = makeTar(t, "../blocks/escape", []byte("hi"))
	if _, err := bundle.Import(context.Background(), bytes.NewReader(b), store.NewMemory(), bundle.ImportOptions{IgnoreUnknown: true}); err == nil {
		t.Fatalf("expected path traversal to be rejected")
	}
}

type index struct {
	Blocks []struct {
		CID  string `json:"cid"`
		Kind string `json:"kind"`
	} `json:"blocks"`
	Labels []struct {
		Name string `json:"name"`
		CID  string `json:"cid"`
	} `json:"labels"`
}

func readIndex(t *testing.T, b []byte) index {
	t.Helper()
	tr := tar.NewReader(bytes.NewReader(b))
	for {
		h, err := tr.Next()
		if err == io.EOF {
			t.Fatalf("index.json not found")
		}
		if err != nil {
			t.Fatal(err)
		}
		if h.Name != "index.json" {
			continue
		}
		var idx index
		if err := json.NewDecoder(tr).Decode(&idx); err != nil {
			t.Fatal(err)
		}
		return idx
	}
}

func makeTar(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	h := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  time.Unix(0, 0).UTC(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(h); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
