package pdfsource

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// mirrorClient downloads datasheets from a manufacturer FTP mirror, e.g.
// ftp://ftp.example.com/datasheets. Matching files are retrieved into a
// temp directory and handed to the extractor like local documents.
type mirrorClient struct {
	host    string // host:port
	dir     string
	timeout time.Duration
}

func newMirrorClient(mirrorURL string) (*mirrorClient, error) {
	u, err := url.Parse(mirrorURL)
	if err != nil {
		return nil, eris.Wrap(err, "pdfsource: parse ftp mirror url")
	}
	if u.Scheme != "ftp" {
		return nil, eris.Errorf("pdfsource: expected ftp scheme, got %q", u.Scheme)
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	return &mirrorClient{
		host:    host,
		dir:     u.Path,
		timeout: 30 * time.Second,
	}, nil
}

// fetchMatching lists the mirror directory and downloads every PDF that
// matches the product identifiers. A failed listing aborts; a failed
// individual download is skipped.
func (m *mirrorClient) fetchMatching(ctx context.Context, articleNumber, productName string) ([]string, error) {
	conn, err := ftp.Dial(m.host,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(m.timeout),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "pdfsource: dial ftp %s", m.host)
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, eris.Wrap(err, "pdfsource: ftp login")
	}

	entries, err := conn.List(m.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "pdfsource: ftp list %s", m.dir)
	}

	var paths []string
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile || !matchesProduct(e.Name, articleNumber, productName) {
			continue
		}
		local, err := m.download(conn, path.Join(m.dir, e.Name), e.Name)
		if err != nil {
			zap.L().Warn("pdfsource: ftp download failed",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			continue
		}
		paths = append(paths, local)
	}
	return paths, nil
}

func (m *mirrorClient) download(conn *ftp.ServerConn, remotePath, name string) (string, error) {
	resp, err := conn.Retr(remotePath)
	if err != nil {
		return "", eris.Wrapf(err, "pdfsource: ftp retr %s", remotePath)
	}
	defer func() { _ = resp.Close() }()

	f, err := os.CreateTemp("", "prodex-*-"+name)
	if err != nil {
		return "", eris.Wrap(err, "pdfsource: create temp file")
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, resp); err != nil {
		_ = os.Remove(f.Name())
		return "", eris.Wrapf(err, "pdfsource: copy %s", remotePath)
	}
	return f.Name(), nil
}
