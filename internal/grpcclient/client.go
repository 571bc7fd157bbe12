package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/tumor-check/internal/classifier"
	"github.com/example/tumor-check/internal/logging"
)

// ClassifyMethod is the unary RPC the inference service exposes. The request
// is a BytesValue with the raw image; the reply is a Struct with the keys
// label, confidence, tumor_type and is_healthy.
const ClassifyMethod = "/tumorcheck.v1.Classifier/Classify"

// Metadata keys carrying the upload's declared attributes.
const (
	MetadataFilename    = "x-filename"
	MetadataContentType = "x-content-type"
)

// DialClassifier connects to the inference service and returns it as a classifier.
func DialClassifier(ctx context.Context, addr string, logger *zap.Logger, opts ...grpc.DialOption) (classifier.Classifier, *grpc.ClientConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}, opts...)

	conn, err := grpc.DialContext(dialCtx, addr, dialOpts...)
	if err != nil {
		wrapped := logging.NewOperationError("grpcclient.dial_classifier", "", err)
		logger.Error("failed to dial classifier", zap.Error(wrapped), zap.String("addr", addr))
		return nil, nil, wrapped
	}
	return &grpcClassifier{conn: conn, logger: logger.Named("grpc_classifier")}, conn, nil
}

type grpcClassifier struct {
	conn   *grpc.ClientConn
	logger *zap.Logger
}

func (g *grpcClassifier) Classify(ctx context.Context, img classifier.Image) (*classifier.Result, error) {
	ctx = metadata.AppendToOutgoingContext(ctx,
		MetadataFilename, img.Filename,
		MetadataContentType, img.ContentType,
	)

	reply := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, ClassifyMethod, wrapperspb.Bytes(img.Data), reply); err != nil {
		wrapped := logging.NewOperationError("grpcclient.classify", "", err)
		g.logger.Error("classifier call failed", zap.Error(wrapped), zap.Int("bytes", len(img.Data)))
		return nil, wrapped
	}
	return resultFromStruct(reply)
}

func resultFromStruct(s *structpb.Struct) (*classifier.Result, error) {
	fields := s.GetFields()
	label := fields["label"].GetStringValue()
	if label == "" {
		return nil, errors.New("classifier reply has no label")
	}
	confidence, ok := fields["confidence"].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil, fmt.Errorf("classifier reply for %q has no numeric confidence", label)
	}
	return &classifier.Result{
		Label:      label,
		Confidence: confidence.NumberValue,
		TumorType:  fields["tumor_type"].GetStringValue(),
		IsHealthy:  fields["is_healthy"].GetBoolValue(),
	}, nil
}
