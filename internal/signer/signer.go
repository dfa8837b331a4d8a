// Package signer authenticates requests with the signature versions NIFCLOUD services accept.
package signer

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
)

var (
	// ErrUnknownVersion is returned for a signature version no signer implements.
	ErrUnknownVersion = errors.New("unknown signature version")
	// ErrNoCredentials is returned when signing without an access key.
	ErrNoCredentials = errors.New("unable to locate credentials")
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	formContentType = "application/x-www-form-urlencoded; charset=utf-8"
)

// Scope names the service and region a signature is bound to.
type Scope struct {
	Service string
	Region  string
}

// Signer authenticates a request. body is the exact payload of req.
type Signer interface {
	Sign(ctx context.Context, req *http.Request, body []byte, creds aws.Credentials, scope Scope) error
}

type options struct {
	now func() time.Time
	log *slog.Logger
}

// Options configures signers.
type Options func(*options)

// WithLogger sets the logger of the signer.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// WithClock sets the clock used for signature timestamps.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// New returns the signer for a signature version or operation authtype.
func New(version string, args ...Options) (Signer, error) {
	opts := options{
		now: time.Now,
		log: slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	switch version {
	case "v2":
		return v2Signer{opts}, nil
	case "v3", "v3https":
		return v3Signer{opts}, nil
	case "v4":
		return v4Signer{opts: opts, signer: v4.NewSigner()}, nil
	case "s3v4":
		return v4Signer{opts: opts, s3: true, signer: v4.NewSigner(func(so *v4.SignerOptions) {
			so.DisableURIPathEscaping = true
		})}, nil
	case "none":
		return noneSigner{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownVersion, version)
}

type noneSigner struct{}

func (noneSigner) Sign(context.Context, *http.Request, []byte, aws.Credentials, Scope) error {
	return nil
}

// v2Signer adds a SignatureVersion 2 signature to the form or the query string.
type v2Signer struct {
	opts options
}

func (s v2Signer) Sign(_ context.Context, req *http.Request, body []byte, creds aws.Credentials, _ Scope) error {
	if creds.AccessKeyID == "" {
		return ErrNoCredentials
	}

	inBody := len(body) > 0
	raw := req.URL.RawQuery
	if inBody {
		raw = string(body)
	}
	params, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("could not read request parameters: %w", err)
	}

	params.Set("AccessKeyId", creds.AccessKeyID)
	params.Set("SignatureVersion", "2")
	params.Set("SignatureMethod", "HmacSHA256")
	params.Set("Timestamp", s.opts.now().UTC().Format(timestampLayout))
	if creds.SessionToken != "" {
		params.Set("SecurityToken", creds.SessionToken)
	}
	params.Del("Signature")

	path := req.URL.EscapedPath()
	if path == "" {
		path = "/"
	}
	qs := protocol.EncodeQuery(params)
	toSign := req.Method + "\n" + req.URL.Host + "\n" + path + "\n" + qs
	params.Set("Signature", base64.StdEncoding.EncodeToString(hmacSHA256([]byte(creds.SecretAccessKey), toSign)))
	s.opts.log.Debug("Calculating signature using v2 auth")

	encoded := protocol.EncodeQuery(params)
	if inBody {
		setBody(req, []byte(encoded))
		req.Header.Set("Content-Type", formContentType)
		return nil
	}
	req.URL.RawQuery = encoded
	return nil
}

// v3Signer signs the Date header into X-Amzn-Authorization.
type v3Signer struct {
	opts options
}

func (s v3Signer) Sign(_ context.Context, req *http.Request, _ []byte, creds aws.Credentials, _ Scope) error {
	if creds.AccessKeyID == "" {
		return ErrNoCredentials
	}

	date := s.opts.now().UTC().Format(http.TimeFormat)
	req.Header.Set("Date", date)
	if creds.SessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", creds.SessionToken)
	}
	sig := base64.StdEncoding.EncodeToString(hmacSHA256([]byte(creds.SecretAccessKey), date))
	req.Header.Set("X-Amzn-Authorization",
		fmt.Sprintf("AWS3-HTTPS AWSAccessKeyId=%s,Algorithm=HmacSHA256,Signature=%s", creds.AccessKeyID, sig))
	return nil
}

// v4Signer delegates to the SigV4 signer of the SDK core.
type v4Signer struct {
	opts   options
	s3     bool
	signer *v4.Signer
}

func (s v4Signer) Sign(ctx context.Context, req *http.Request, body []byte, creds aws.Credentials, scope Scope) error {
	if creds.AccessKeyID == "" {
		return ErrNoCredentials
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	if s.s3 {
		req.Header.Set("X-Amz-Content-Sha256", hash)
	}
	return s.signer.SignHTTP(ctx, creds, req, hash, scope.Service, scope.Region, s.opts.now().UTC())
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func setBody(req *http.Request, b []byte) {
	req.Body = io.NopCloser(bytes.NewReader(b))
	req.ContentLength = int64(len(b))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}
