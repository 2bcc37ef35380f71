package errors

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewCapturesCallerStack(t *testing.T) {
	err := New(ErrorTypeData, "bad cell")
	require.NotEmpty(t, err.Stack)
	assert.True(t, strings.HasSuffix(err.Stack[0].Function, "TestNewCapturesCallerStack"), err.Stack[0].Function)
}

func TestWrapKeepsInnerStack(t *testing.T) {
	inner := New(ErrorTypeTransform, "unknown category")
	outer := Wrap(inner, ErrorTypeInternal, "predict failed")
	assert.Equal(t, inner.Stack, outer.Stack)
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "nothing"))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrorTypeConnection, "s3 unreachable")))
	assert.True(t, IsRetryable(Wrap(io.ErrUnexpectedEOF, ErrorTypeTimeout, "read timed out")))
	assert.False(t, IsRetryable(New(ErrorTypeNotFound, "no artifact")))
	assert.False(t, IsRetryable(io.EOF))
}

func TestDetail(t *testing.T) {
	err := New(ErrorTypeNotFound, "artifact not found").WithDetail("name", "model_v1")
	v, ok := Detail(err, "name")
	require.True(t, ok)
	assert.Equal(t, "model_v1", v)

	_, ok = Detail(io.EOF, "name")
	assert.False(t, ok)
}

func TestFieldLogsStructuredErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	err := Wrap(io.EOF, ErrorTypeFile, "failed to read dataset").WithDetail("path", "train.csv")
	log.Error("load failed", Field(err))
	log.Error("plain", Field(io.EOF))

	require.Equal(t, 2, logs.Len())
	obj, ok := logs.All()[0].ContextMap()["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "file", obj["type"])
	assert.Equal(t, "EOF", obj["cause"])
	assert.Equal(t, map[string]interface{}{"path": "train.csv"}, obj["details"])

	assert.Equal(t, "EOF", logs.All()[1].ContextMap()["error"])
}
