// Package streaming pushes delivered reports to a WebSocket server.
package streaming

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/TrafficReport/analyzer/internal/analyzer"
	"github.com/TrafficReport/analyzer/pkg/core"
	"github.com/TrafficReport/analyzer/pkg/streaming"
)

// Config holds WebSocket streaming configuration.
type Config struct {
	URL      string
	Secret   string
	Service  string
	Snapshot string
}

// Streamer is an analyzer.Consumer that forwards every result as an
// envelope. Sends never block the delivery context.
type Streamer struct {
	conn    *connection
	cfg     Config
	dropped atomic.Uint64
}

// New creates a Streamer. Call Open before results are delivered.
func New(cfg Config, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{
		conn: newConnection(logger.With("component", "streaming")),
		cfg:  cfg,
	}
}

// Open connects and waits for the server to acknowledge the hello message.
func (s *Streamer) Open() error {
	if err := s.conn.dial(s.cfg.URL, s.cfg.Secret); err != nil {
		return err
	}
	data, err := marshalEnvelope(streaming.TypeHello, streaming.HelloPayload{
		Service:  s.cfg.Service,
		Snapshot: s.cfg.Snapshot,
	})
	if err != nil {
		return err
	}

	s.conn.mu.Lock()
	s.conn.hello = data
	s.conn.mu.Unlock()

	return s.conn.sendAndWait(data, streaming.TypeHello, ackTimeout)
}

// Close disconnects from the server.
func (s *Streamer) Close() error {
	return s.conn.close()
}

// Dropped is the number of envelopes lost to a full send queue.
func (s *Streamer) Dropped() uint64 {
	return s.dropped.Load()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (s *Streamer) sendEnvelope(msgType string, payload any) {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		s.conn.logger.Error("Failed to encode envelope", "type", msgType, "error", err)
		return
	}
	if !s.conn.send(data) {
		s.dropped.Add(1)
	}
}

func (s *Streamer) OnGotVehiclePath(id analyzer.RequestID, vehicle uint16, path core.Path) {
	s.sendEnvelope(streaming.TypeVehiclePath, streaming.VehiclePathPayload{
		RequestID: string(id),
		Vehicle:   vehicle,
		Path:      path,
	})
}

func (s *Streamer) OnGotSegmentReport(id analyzer.RequestID, r core.Report) {
	s.sendEnvelope(streaming.TypeSegmentReport, streaming.NewReportPayload(string(id), r))
}

func (s *Streamer) OnGotBuildingReport(id analyzer.RequestID, r core.Report) {
	s.sendEnvelope(streaming.TypeBuildingReport, streaming.NewReportPayload(string(id), r))
}

func (s *Streamer) OnReportFailed(id analyzer.RequestID, kind core.ReportKind, target uint16, err error) {
	s.sendEnvelope(streaming.TypeReportFailed, streaming.FailurePayload{
		RequestID: string(id),
		Kind:      kind.String(),
		Target:    target,
		Error:     err.Error(),
	})
}
