package ec2

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

// probeTimeout bounds the instance-id lookup used for EC2 detection
const probeTimeout = 2 * time.Second

// MetadataAPI is the subset of the IMDS client used here
type MetadataAPI interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// Metadata reads instance metadata. The imds client negotiates an IMDSv2
// session token and falls back to IMDSv1 when the token endpoint is absent.
type Metadata struct {
	api MetadataAPI
}

// New returns a Metadata backed by the default IMDS endpoint
func New() *Metadata {
	return &Metadata{api: imds.New(imds.Options{})}
}

// NewWithAPI returns a Metadata backed by the given client
func NewWithAPI(api MetadataAPI) *Metadata {
	return &Metadata{api: api}
}

// IsRunningOnEC2 reports whether the instance metadata service answers.
// Any failure means "not on EC2".
func (m *Metadata) IsRunningOnEC2(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	id, err := m.get(ctx, "instance-id")
	return err == nil && id != ""
}

// InstanceID returns the EC2 instance id
func (m *Metadata) InstanceID(ctx context.Context) (string, error) {
	return m.get(ctx, "instance-id")
}

// PublicIPv4 returns the instance's public address, which is the Elastic IP
// when one is associated
func (m *Metadata) PublicIPv4(ctx context.Context) (string, error) {
	ip, err := m.get(ctx, "public-ipv4")
	if err != nil {
		return "", err
	}
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("invalid public-ipv4 %q", ip)
	}
	return ip, nil
}

func (m *Metadata) get(ctx context.Context, path string) (string, error) {
	out, err := m.api.GetMetadata(ctx, &imds.GetMetadataInput{Path: path})
	if err != nil {
		return "", fmt.Errorf("error reading metadata %s: %w", path, err)
	}
	defer out.Content.Close()

	body, err := io.ReadAll(out.Content)
	if err != nil {
		return "", fmt.Errorf("error reading metadata %s: %w", path, err)
	}
	return strings.TrimSpace(string(body)), nil
}
