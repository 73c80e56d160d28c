package ec2

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIMDS struct {
	values map[string]string
	err    error
}

func (f *fakeIMDS) GetMetadata(_ context.Context, params *imds.GetMetadataInput, _ ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[params.Path]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return &imds.GetMetadataOutput{Content: io.NopCloser(strings.NewReader(v))}, nil
}

func TestIsRunningOnEC2(t *testing.T) {
	onEC2 := NewWithAPI(&fakeIMDS{values: map[string]string{"instance-id": "i-0abc\n"}})
	assert.True(t, onEC2.IsRunningOnEC2(context.Background()))

	offEC2 := NewWithAPI(&fakeIMDS{err: errors.New("connection refused")})
	assert.False(t, offEC2.IsRunningOnEC2(context.Background()))
}

func TestPublicIPv4(t *testing.T) {
	m := NewWithAPI(&fakeIMDS{values: map[string]string{"public-ipv4": " 3.91.12.7\n"}})
	ip, err := m.PublicIPv4(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.91.12.7", ip)

	bad := NewWithAPI(&fakeIMDS{values: map[string]string{"public-ipv4": "<html>"}})
	_, err = bad.PublicIPv4(context.Background())
	assert.Error(t, err)

	missing := NewWithAPI(&fakeIMDS{values: map[string]string{}})
	_, err = missing.PublicIPv4(context.Background())
	assert.Error(t, err)
}
