package escrow

import (
	"context"
	"io"

	"github.com/ipfs/go-cid"

	"xdao.co/cryptoconditions/store/bundle"
)

// Export writes every announced condition and accepted fulfillment to w as a
// bundle. Index labels are "hold/<id>/condition" and "hold/<id>/fulfillment".
func (l *Ledger) Export(ctx context.Context, w io.Writer) error {
	holds := l.List()
	ids := make([]cid.Cid, 0, 2*len(holds))
	labels := make(map[string]cid.Cid, 2*len(holds))
	for _, h := range holds {
		prefix := "hold/" + h.ID.String() + "/"
		ids = append(ids, h.ConditionCID)
		labels[prefix+"condition"] = h.ConditionCID
		if h.FulfillmentCID.Defined() {
			ids = append(ids, h.FulfillmentCID)
			labels[prefix+"fulfillment"] = h.FulfillmentCID
		}
	}
	l.logger.DebugContext(ctx, "exporting holds", "holds", len(holds), "blocks", len(ids))
	return bundle.Export(ctx, w, l.cas, ids, bundle.ExportOptions{Labels: labels, IncludeIndex: true})
}
