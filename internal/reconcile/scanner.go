package reconcile

import (
	"sort"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/utils"
)

// TransferScan is the result of walking one call's event history.
type TransferScan struct {
	// Transfer is the authoritative transfer event: the last chronological
	// event of the profile's transfer kind carrying an extension and a
	// timestamp. Nil when the call has no transfer.
	Transfer *model.HistoryEvent
	// Anchor is the most recent anchor-kind event at or before the transfer.
	// Nil when the transfer has no preceding anchor.
	Anchor *model.HistoryEvent
	// QueueExtension is set when the transfer targets a queue extension.
	QueueExtension string
	// Direct is set when the transfer targets a non-queue extension; the
	// transfer's own extension is then the final answer and no inbound
	// search is needed.
	Direct bool
}

// ScanHistory locates the authoritative transfer and its temporal anchor in
// a call's event history. Source data is chronological but not guaranteed
// sorted, so ordering is re-established here.
func ScanHistory(events []model.HistoryEvent, p Profile) TransferScan {
	var scan TransferScan

	transfers := make([]model.HistoryEvent, 0, len(events))
	for _, ev := range events {
		if ev.Kind == p.TransferKind && ev.Extension != "" && ev.Timestamp > 0 {
			transfers = append(transfers, ev)
		}
	}
	if len(transfers) == 0 {
		return scan
	}

	sort.SliceStable(transfers, func(i, j int) bool {
		return utils.NormalizeMillis(transfers[i].Timestamp.Int64()) <
			utils.NormalizeMillis(transfers[j].Timestamp.Int64())
	})

	// Only the last transfer is authoritative when multiple exist.
	transfer := transfers[len(transfers)-1]
	scan.Transfer = &transfer

	if !IsQueueExtension(transfer.Extension) {
		scan.Direct = true
		return scan
	}
	scan.QueueExtension = transfer.Extension

	transferMs := utils.NormalizeMillis(transfer.Timestamp.Int64())
	anchors := make([]model.HistoryEvent, 0, len(events))
	for _, ev := range events {
		if ev.Kind != p.AnchorKind || ev.Timestamp <= 0 {
			continue
		}
		if utils.NormalizeMillis(ev.Timestamp.Int64()) <= transferMs {
			anchors = append(anchors, ev)
		}
	}
	if len(anchors) == 0 {
		return scan
	}

	sort.SliceStable(anchors, func(i, j int) bool {
		return utils.NormalizeMillis(anchors[i].Timestamp.Int64()) >
			utils.NormalizeMillis(anchors[j].Timestamp.Int64())
	})

	anchor := anchors[0]
	scan.Anchor = &anchor
	return scan
}
