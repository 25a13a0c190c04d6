package export

import (
	"bytes"
	"context"
	"net"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures FTP delivery.
type FTPOptions struct {
	User     string
	Password string
	Timeout  time.Duration
}

// FTPDeliverer uploads artifacts into a directory on an FTP server.
type FTPDeliverer struct {
	target string
	opts   FTPOptions
}

// NewFTPDeliverer creates an FTPDeliverer for a target such as
// ftp://host:21/exports.
func NewFTPDeliverer(target string, opts FTPOptions) *FTPDeliverer {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPDeliverer{target: target, opts: opts}
}

// parseFTPTarget extracts host (with port) and directory from an FTP URL.
func parseFTPTarget(rawURL string) (host string, dir string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", eris.New("empty host in ftp url")
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	dir = u.Path
	if dir == "" {
		dir = "/"
	}
	return host, dir, nil
}

// Deliver uploads the artifact and returns its ftp:// location.
func (f *FTPDeliverer) Deliver(ctx context.Context, a *Artifact) (string, error) {
	host, dir, err := parseFTPTarget(f.target)
	if err != nil {
		return "", err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("dir", dir))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return "", eris.Wrap(err, "ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(f.opts.User, f.opts.Password); err != nil {
		return "", eris.Wrap(err, "ftp login")
	}

	remote := path.Join(dir, a.Name)
	if err := conn.Stor(remote, bytes.NewReader(a.Data)); err != nil {
		return "", eris.Wrapf(err, "ftp store %s", remote)
	}

	loc := (&url.URL{Scheme: "ftp", Host: host, Path: remote}).String()
	zap.L().Info("export: uploaded artifact", zap.String("location", loc), zap.Int("rows", a.Rows))
	return loc, nil
}
