package logger

import (
	"context"

	"go.uber.org/zap"
)

const (
	TypeAccessLog = "access_log"
	TypeSys       = "sys"
)

type Zap struct {
	writer *zap.Logger
}

var _ Logger = (*Zap)(nil)

func NewZap(zapLogger *zap.Logger) *Zap {
	return &Zap{writer: zapLogger}
}

func (z *Zap) Debug(ctx context.Context, msg string, fields ...KeyValue) {
	z.writer.Debug(msg, zapFields(ctx, TypeSys, fields)...)
}

func (z *Zap) Info(ctx context.Context, msg string, fields ...KeyValue) {
	z.writer.Info(msg, zapFields(ctx, TypeSys, fields)...)
}

func (z *Zap) Warn(ctx context.Context, msg string, fields ...KeyValue) {
	z.writer.Warn(msg, zapFields(ctx, TypeSys, fields)...)
}

func (z *Zap) Error(ctx context.Context, msg string, fields ...KeyValue) {
	z.writer.Error(msg, zapFields(ctx, TypeSys, fields)...)
}

func (z *Zap) Access(ctx context.Context, data AccessLogData) {
	z.writer.Info(TypeAccessLog, zapFields(ctx, TypeAccessLog, []KeyValue{KV("data", data)})...)
}

func zapFields(ctx context.Context, tag string, fields []KeyValue) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	out = append(out, zap.String("tag", tag))

	if data, ok := Extract(ctx); ok {
		out = append(out, zap.Any("tracer", data))
	}

	for _, field := range fields {
		out = append(out, zap.Any(field.Key, field.Value))
	}

	return out
}
