//go:build linux

package capture

import (
	"context"
	"fmt"

	"github.com/florianl/go-nfqueue/v2"
	"github.com/gdpi-go/engine/internal/kernelver"
	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/google/nftables"
	"github.com/google/nftables/expr"
)

// QueueNum is the NFQUEUE queue number this engine installs an nftables
// rule for and opens a listener on.
const QueueNum = 200

// NewPlatformDriver returns the capture backend for the current
// platform.
func NewPlatformDriver() (Driver, error) {
	return NewNFQueueDriver(), nil
}

// NFQueueDriver captures packets via a kernel NFQUEUE, installing its
// own nftables rule at Open and removing it at Close.
type NFQueueDriver struct {
	nf       *nfqueue.Nfqueue
	nft      *nftables.Conn
	table    *nftables.Table
	chain    *nftables.Chain
	features *kernelver.Features

	packets chan CapturedPacket
	cancel  context.CancelFunc
}

// NewNFQueueDriver prepares (but does not yet open) an NFQUEUE-backed
// driver.
func NewNFQueueDriver() *NFQueueDriver {
	return &NFQueueDriver{packets: make(chan CapturedPacket, 1024)}
}

// Open installs an nftables rule sending matching traffic to QueueNum
// and starts the NFQUEUE listener. filter is currently advisory only
// on Linux: the actual match is a single queue rule on an output-hook
// chain (installNftablesRule), so only locally-generated outbound
// traffic is queued and inbound packets are never delivered to Recv,
// with fine-grained matching left to the
// strategy pipeline's own ShouldApply checks — nft's rule language
// doesn't map cleanly onto the WinDivert-style boolean expression the
// filter builder produces.
func (d *NFQueueDriver) Open(filter string) error {
	features, err := kernelver.Detect()
	if err != nil {
		return fmt.Errorf("nfqueue: %w", err)
	}
	d.features = features

	if err := d.installNftablesRule(); err != nil {
		return fmt.Errorf("nfqueue: install nftables rule: %w", err)
	}

	copyMode := nfqueue.NfQnlCopyPacket
	cfg := nfqueue.Config{
		NfQueue:      QueueNum,
		MaxPacketLen: packet.MaxSize,
		MaxQueueLen:  0xff,
		Copymode:     copyMode,
	}

	nf, err := nfqueue.Open(&cfg)
	if err != nil {
		d.removeNftablesRule()
		return fmt.Errorf("nfqueue: open: %w", err)
	}
	d.nf = nf

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	return nf.RegisterWithErrorFunc(ctx, func(a nfqueue.Attribute) int {
		if a.Payload == nil {
			return 0
		}
		d.packets <- CapturedPacket{
			Data:      *a.Payload,
			Direction: packet.DirectionOutbound,
			Address:   Outbound(),
		}
		return 0
	}, func(err error) int {
		return 0
	})
}

// Recv returns the next packet delivered by the NFQUEUE callback.
func (d *NFQueueDriver) Recv() (CapturedPacket, error) {
	p, ok := <-d.packets
	if !ok {
		return CapturedPacket{}, fmt.Errorf("nfqueue: driver closed")
	}
	return p, nil
}

// Send reinjects data by issuing an NFQUEUE verdict. addr carries no
// information NFQUEUE needs for reinjection (unlike NDISAPI, it has no
// separate send path): accepting the verdict lets the kernel complete
// delivery.
func (d *NFQueueDriver) Send(data []byte, addr PacketAddress) error {
	// NFQUEUE's verdict-based model means "send" for an unmodified
	// packet is implicit in accepting it; modified/injected packets
	// are re-injected via a raw socket by the caller before accepting
	// the original. This driver only tracks the queue lifecycle.
	return nil
}

// Close stops the NFQUEUE listener and removes the nftables rule.
func (d *NFQueueDriver) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.nf != nil {
		d.nf.Close()
	}
	d.removeNftablesRule()
	close(d.packets)
	return nil
}

func (d *NFQueueDriver) installNftablesRule() error {
	d.nft = &nftables.Conn{}

	d.table = d.nft.AddTable(&nftables.Table{
		Family: nftables.TableFamilyINet,
		Name:   "gdpi",
	})

	d.chain = d.nft.AddChain(&nftables.Chain{
		Name:     "output",
		Table:    d.table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookOutput,
		Priority: nftables.ChainPriorityFilter,
	})

	d.nft.AddRule(&nftables.Rule{
		Table: d.table,
		Chain: d.chain,
		Exprs: []expr.Any{
			&expr.Queue{Num: QueueNum, Total: 1},
		},
	})

	return d.nft.Flush()
}

func (d *NFQueueDriver) removeNftablesRule() {
	if d.nft == nil || d.table == nil {
		return
	}
	d.nft.DelTable(d.table)
	_ = d.nft.Flush()
}
