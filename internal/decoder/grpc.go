package decoder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Metadata keys carrying model selection on every decode call.
const (
	MetadataModel  = "casl-model"
	MetadataScorer = "casl-scorer"
)

// GRPCConfig locates a remote decoder service.
type GRPCConfig struct {
	Endpoint    string
	Method      string
	DialTimeout time.Duration
	ModelPath   string
	ScorerPath  string
	DialOptions []grpc.DialOption
}

// GRPCModel decodes windows through one unary call per window. The request is
// a BytesValue of PCM s16le; the reply is a ListValue of {text, timestep}
// structs.
type GRPCModel struct {
	conn   *grpc.ClientConn
	method string
	model  string
	scorer string
}

// DialGRPC connects to the decoder service and waits until it is ready.
func DialGRPC(ctx context.Context, cfg GRPCConfig) (*GRPCModel, error) {
	method := strings.TrimSpace(cfg.Method)
	if !strings.HasPrefix(method, "/") {
		return nil, fmt.Errorf("decoder method %q must be a full /service/method name", cfg.Method)
	}

	conn, err := dial(ctx, cfg.Endpoint, cfg.DialTimeout, cfg.DialOptions)
	if err != nil {
		return nil, err
	}
	return &GRPCModel{
		conn:   conn,
		method: method,
		model:  cfg.ModelPath,
		scorer: cfg.ScorerPath,
	}, nil
}

// NewStream starts an empty decoding window.
func (m *GRPCModel) NewStream(context.Context) (Stream, error) {
	return &grpcStream{model: m}, nil
}

// Close releases the underlying connection.
func (m *GRPCModel) Close() error {
	if m == nil || m.conn == nil {
		return nil
	}
	return m.conn.Close()
}

func (m *GRPCModel) decode(ctx context.Context, samples []int16) ([]Token, error) {
	pairs := []string{MetadataModel, m.model}
	if m.scorer != "" {
		pairs = append(pairs, MetadataScorer, m.scorer)
	}
	ctx = metadata.AppendToOutgoingContext(ctx, pairs...)

	req := wrapperspb.Bytes(encodePCM(samples))
	resp := &structpb.ListValue{}
	if err := m.conn.Invoke(ctx, m.method, req, resp); err != nil {
		return nil, fmt.Errorf("invoke %s: %w", m.method, err)
	}
	return tokensFromList(resp)
}

type grpcStream struct {
	model   *GRPCModel
	samples []int16
	done    bool
}

func (s *grpcStream) Feed(samples []int16) {
	if s.done {
		return
	}
	s.samples = append(s.samples, samples...)
}

func (s *grpcStream) Finish(ctx context.Context) ([]Token, error) {
	if s.done {
		return nil, errors.New("decoder stream already finished")
	}
	s.done = true
	samples := s.samples
	s.samples = nil
	return s.model.decode(ctx, samples)
}

func encodePCM(samples []int16) []byte {
	out := make([]byte, 0, len(samples)*2)
	for _, v := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(v))
	}
	return out
}

func tokensFromList(list *structpb.ListValue) ([]Token, error) {
	values := list.GetValues()
	tokens := make([]Token, 0, len(values))
	for i, v := range values {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("token %d is not a struct", i)
		}
		fields := s.GetFields()
		text, ok := fields["text"].GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("token %d has no text", i)
		}
		ts, ok := fields["timestep"].GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("token %d has no timestep", i)
		}
		step := ts.NumberValue
		if step < 0 || step > math.MaxUint32 || step != math.Trunc(step) {
			return nil, fmt.Errorf("token %d timestep %v out of range", i, step)
		}
		tokens = append(tokens, Token{Text: text.StringValue, Timestep: uint32(step)})
	}
	return tokens, nil
}
