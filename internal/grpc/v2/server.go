// Package v2 отдаёт операции со ссылками по gRPC (сервис shortlinks.v2.Links).
//
// Сообщения используют стандартные типы protobuf (StringValue, Struct, Empty), поэтому
// дескриптор сервиса объявлен вручную, без сгенерированного кода.
package v2

import (
	"context"
	"encoding/json"

	"github.com/Totarae/shortlinks/internal/apperr"
	"github.com/Totarae/shortlinks/internal/auth"
	"github.com/Totarae/shortlinks/internal/handlers"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "shortlinks.v2.Links"

	MethodResolve   = "/" + ServiceName + "/Resolve"
	MethodShorten   = "/" + ServiceName + "/Shorten"
	MethodListOwned = "/" + ServiceName + "/ListOwned"
)

// LinksServer is the server API for shortlinks.v2.Links.
type LinksServer interface {
	Resolve(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	Shorten(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListOwned(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// GRPCServer реализует LinksServer поверх сервисов ссылок.
type GRPCServer struct {
	Links    handlers.LinkService
	Resolver handlers.LinkResolver
	Logger   *zap.Logger
}

var _ LinksServer = (*GRPCServer)(nil)

func NewGRPCServer(links handlers.LinkService, resolver handlers.LinkResolver, logger *zap.Logger) *GRPCServer {
	return &GRPCServer{Links: links, Resolver: resolver, Logger: logger}
}

// Resolve публичный: клик засчитывается так же, как по HTTP.
func (s *GRPCServer) Resolve(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}

	resolution, err := s.Resolver.Resolve(ctx, req.GetValue())
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(resolution)
}

func (s *GRPCServer) Shorten(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	fields := req.GetFields()
	result, err := s.Links.Shorten(ctx, owner,
		fields["originalUrl"].GetStringValue(),
		fields["note"].GetStringValue(),
	)
	if err != nil {
		return nil, s.toStatus(err)
	}

	out, err := toStruct(result.Link)
	if err != nil {
		return nil, err
	}
	out.Fields["created"] = structpb.NewBoolValue(result.Created)
	return out, nil
}

func (s *GRPCServer) ListOwned(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	links, err := s.Links.ListOwned(ctx, owner)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(map[string]any{"links": links})
}

func ownerFrom(ctx context.Context) (string, error) {
	identity, ok := auth.FromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, apperr.ErrAuthFailed.Reason)
	}
	return identity.OwnerID, nil
}

// toStatus переводит класс ошибки в код gRPC. Детали ошибок хранилища
// остаются в логе.
func (s *GRPCServer) toStatus(err error) error {
	kind := apperr.KindOf(err)
	var code codes.Code
	switch kind {
	case apperr.KindValidation:
		code = codes.InvalidArgument
	case apperr.KindNotFound:
		code = codes.NotFound
	case apperr.KindConflict:
		code = codes.AlreadyExists
	case apperr.KindAuth:
		code = codes.Unauthenticated
	default:
		s.Logger.Error("grpc request failed", zap.Stringer("kind", kind), zap.Error(err))
		return status.Error(codes.Internal, apperr.ErrStore.Reason)
	}
	return status.Error(code, apperr.ReasonOf(err))
}

// toStruct переносит JSON-представление значения в Struct, чтобы имена
// полей совпадали с HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// AuthInterceptor проверяет metadata "authorization" у всех методов,
// кроме публичного Resolve.
func AuthInterceptor(a *auth.Auth) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if info.FullMethod == MethodResolve {
			return handler(ctx, req)
		}

		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				header = values[0]
			}
		}

		token, err := auth.BearerToken(header)
		if err == nil {
			var identity auth.Identity
			identity, err = a.Verify(token)
			if err == nil {
				return handler(auth.WithIdentity(ctx, identity), req)
			}
		}

		reason := apperr.ErrAuthFailed.Reason
		if apperr.KindOf(err) == apperr.KindAuth {
			reason = apperr.ReasonOf(err)
		}
		return nil, status.Error(codes.Unauthenticated, reason)
	}
}

// LoggingInterceptor пишет строку лога на вызов.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		logger.Info("gRPC Request",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
		)
		return resp, err
	}
}

// NewServer собирает grpc.Server с перехватчиками и зарегистрированным сервисом.
func NewServer(srv LinksServer, a *auth.Auth, logger *zap.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		LoggingInterceptor(logger),
		AuthInterceptor(a),
	))
	RegisterLinksServer(s, srv)
	return s
}
