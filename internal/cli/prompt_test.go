package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/signature"
)

// scripted returns a prompter answering with lines, then with err.
func scripted(out io.Writer, err error, lines ...string) *Prompter {
	return &Prompter{out: out, readLine: func(string) (string, error) {
		if len(lines) == 0 {
			return "", err
		}
		line := lines[0]
		lines = lines[1:]
		return line, nil
	}}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		err     error
		want    bool
		wantErr error
	}{
		{name: "yes", lines: []string{"y"}, want: true},
		{name: "yes word", lines: []string{" YES "}, want: true},
		{name: "no", lines: []string{"n"}},
		{name: "empty answer", lines: []string{""}},
		{name: "asks again", lines: []string{"maybe", "y"}, want: true},
		{name: "end of input", err: io.EOF},
		{name: "interrupt", err: readline.ErrInterrupt, wantErr: errors.ErrInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := scripted(io.Discard, tt.err, tt.lines...).Confirm("Is this ok")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestConfirmKeyImport(t *testing.T) {
	var out bytes.Buffer
	p := scripted(&out, io.EOF, "y")
	pkg := &model.Package{PkgRef: model.PkgRef{Name: "lotus", Version: "1", Release: "1", Arch: "noarch"}, Repo: "main"}

	ok, err := p.ConfirmKeyImport(signature.Result{
		KeyID:       "DEADBEEF",
		Fingerprint: "0123 4567",
		UserID:      "Packager <pkg@example.com>",
		KeyPath:     "/etc/gotx/keys/main.asc",
	}, pkg)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Importing GPG key 0xDEADBEEF")
	assert.Contains(t, out.String(), "Packager <pkg@example.com>")
	assert.Contains(t, out.String(), "lotus-1-1.noarch (main)")
}
