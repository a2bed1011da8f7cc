// Package coverage sweeps every opcode page through the decoder and the
// encoder and reports which instructions were reached.
package coverage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/oisee/z80emu/pkg/decode"
	"github.com/oisee/z80emu/pkg/inst"
)

// Page is one 256-entry opcode table.
type Page struct {
	Name   string
	Prefix []byte
	// Displaced pages carry d between the prefix and the opcode byte.
	Displaced bool
}

// Pages lists every table the decoder knows.
var Pages = []Page{
	{Name: "base"},
	{Name: "CB", Prefix: []byte{0xCB}},
	{Name: "ED", Prefix: []byte{0xED}},
	{Name: "DD", Prefix: []byte{0xDD}},
	{Name: "FD", Prefix: []byte{0xFD}},
	{Name: "DDCB", Prefix: []byte{0xDD, 0xCB}, Displaced: true},
	{Name: "FDCB", Prefix: []byte{0xFD, 0xCB}, Displaced: true},
}

// Operand bytes appended after the opcode. d comes first.
var tail = []byte{0x05, 0x34, 0x12}

// isPrefix reports whether op in page p selects another page.
func isPrefix(p Page, op uint8) bool {
	switch len(p.Prefix) {
	case 0:
		return op == 0xCB || op == 0xED || op == 0xDD || op == 0xFD
	case 1:
		return (p.Prefix[0] == 0xDD || p.Prefix[0] == 0xFD) && op == 0xCB
	}
	return false
}

// probe builds the byte sequence for opcode op of page p.
func probe(p Page, op uint8) []byte {
	b := append([]byte{}, p.Prefix...)
	if p.Displaced {
		return append(b, tail[0], op)
	}
	b = append(b, op)
	return append(b, tail...)
}

// Hex renders as "DD CB 05 46" in JSON.
type Hex []byte

func (h Hex) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("% X", []byte(h)))
}

// OpHits counts how many encodings decoded to one OpCode.
type OpHits struct {
	Op       inst.OpCode `json:"op"`
	Mnemonic string      `json:"mnemonic"`
	Hits     int         `json:"hits"`
}

// Unknown is an encoding the decoder does not recognize.
type Unknown struct {
	Page  string `json:"page"`
	Bytes Hex    `json:"bytes"`
}

// Mismatch is an encoding that did not survive decode and re-encode.
type Mismatch struct {
	Page    string `json:"page"`
	Bytes   Hex    `json:"bytes"`
	Text    string `json:"text"`
	Encoded Hex    `json:"encoded,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Report is the result of a sweep.
type Report struct {
	Probed     int64      `json:"probed"`
	Prefixes   int64      `json:"prefixes"`
	Known      int64      `json:"known"`
	Hits       []OpHits   `json:"hits"`
	Missing    []string   `json:"missing"`
	Unknown    []Unknown  `json:"unknown"`
	Mismatches []Mismatch `json:"mismatches"`
	Stubs      []string   `json:"stubs"`
}

// OK reports whether every encoding round-tripped and every OpCode was reached.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0 && len(r.Missing) == 0
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// tally collects results from all workers.
type tally struct {
	mu         sync.Mutex
	hits       [inst.OpCodeCount]int
	unknown    []Unknown
	mismatches []Mismatch
}

// Sweeper decodes opcode pages in parallel.
type Sweeper struct {
	NumWorkers int
	probed     atomic.Int64
	prefixes   atomic.Int64
	known      atomic.Int64
	t          tally
}

// NewSweeper creates a sweeper with the given number of workers.
func NewSweeper(numWorkers int) *Sweeper {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Sweeper{NumWorkers: numWorkers}
}

// Stats returns progress counters.
func (sw *Sweeper) Stats() (probed, known int64) {
	return sw.probed.Load(), sw.known.Load()
}

// Run sweeps pages and returns the report. A Sweeper is used once.
func (sw *Sweeper) Run(pages []Page) *Report {
	ch := make(chan Page, len(pages))
	for _, p := range pages {
		ch <- p
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < sw.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range ch {
				sw.sweepPage(p)
			}
		}()
	}
	wg.Wait()
	return sw.report()
}

func (sw *Sweeper) sweepPage(p Page) {
	for op := 0; op < 256; op++ {
		sw.probed.Add(1)
		if isPrefix(p, uint8(op)) {
			sw.prefixes.Add(1)
			continue
		}
		b := probe(p, uint8(op))
		n, in, err := decode.Bytes(b)
		if err != nil {
			sw.mismatch(Mismatch{Page: p.Name, Bytes: b, Err: err.Error()})
			continue
		}
		if in.Op == inst.UNKNOWN {
			sw.t.mu.Lock()
			sw.t.unknown = append(sw.t.unknown, Unknown{Page: p.Name, Bytes: b[:n]})
			sw.t.mu.Unlock()
			continue
		}
		sw.known.Add(1)
		sw.t.mu.Lock()
		sw.t.hits[in.Op]++
		sw.t.mu.Unlock()

		enc, err := inst.Encode(in)
		switch {
		case err != nil:
			sw.mismatch(Mismatch{Page: p.Name, Bytes: b[:n], Text: in.String(), Err: err.Error()})
		case !bytes.Equal(enc, b[:n]):
			sw.mismatch(Mismatch{Page: p.Name, Bytes: b[:n], Text: in.String(), Encoded: enc})
		case int(n) != inst.ByteSize(in.Op):
			sw.mismatch(Mismatch{Page: p.Name, Bytes: b[:n], Text: in.String(),
				Err: fmt.Sprintf("consumed %d bytes, catalog size %d", n, inst.ByteSize(in.Op))})
		}
	}
}

func (sw *Sweeper) mismatch(m Mismatch) {
	sw.t.mu.Lock()
	sw.t.mismatches = append(sw.t.mismatches, m)
	sw.t.mu.Unlock()
}

func (sw *Sweeper) report() *Report {
	sw.t.mu.Lock()
	defer sw.t.mu.Unlock()

	r := &Report{
		Probed:   sw.probed.Load(),
		Prefixes: sw.prefixes.Load(),
		Known:    sw.known.Load(),
		Missing:  []string{},
		Stubs:    []string{},
	}
	for _, op := range inst.AllOps() {
		if op == inst.UNKNOWN {
			continue
		}
		m := inst.Catalog[op].Mnemonic
		if h := sw.t.hits[op]; h > 0 {
			r.Hits = append(r.Hits, OpHits{Op: op, Mnemonic: m, Hits: h})
		} else {
			r.Missing = append(r.Missing, m)
		}
	}
	r.Unknown = append([]Unknown{}, sw.t.unknown...)
	sort.Slice(r.Unknown, func(i, j int) bool {
		return bytes.Compare(r.Unknown[i].Bytes, r.Unknown[j].Bytes) < 0
	})
	r.Mismatches = append([]Mismatch{}, sw.t.mismatches...)
	sort.Slice(r.Mismatches, func(i, j int) bool {
		return bytes.Compare(r.Mismatches[i].Bytes, r.Mismatches[j].Bytes) < 0
	})
	for _, op := range inst.Stubs() {
		r.Stubs = append(r.Stubs, inst.Catalog[op].Mnemonic)
	}
	return r
}

// Sweep runs a full sweep of all pages.
func Sweep(numWorkers int) *Report {
	return NewSweeper(numWorkers).Run(Pages)
}
