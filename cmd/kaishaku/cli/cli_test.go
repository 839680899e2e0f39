package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/policy"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/registry"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/session"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/settings"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/vcs"
)

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	want := []string{
		"checkout", "switch", "branch", "save", "exit", "abort", "status",
		"list", "clean", "recover", "rename", "config", "version",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	cmd, _, err := root.Find([]string{"ls"})
	require.NoError(t, err)
	assert.Equal(t, "list", cmd.Name())
}

func TestExitCmd_FlagsMutuallyExclusive(t *testing.T) {
	t.Parallel()

	_, _, err := executeRoot(t, "exit", "--force", "--keep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestExitFlagFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want policy.Flag
	}{
		{nil, policy.FlagNone},
		{[]string{"--force"}, policy.FlagForce},
		{[]string{"-k"}, policy.FlagKeep},
		{[]string{"--save"}, policy.FlagSave},
		{[]string{"--no-save"}, policy.FlagNoSave},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			t.Parallel()
			cmd := newExitCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))
			got, err := exitFlagFrom(cmd.Flags())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := exitFlagFrom(pflag.NewFlagSet("empty", pflag.ContinueOnError))
	assert.Error(t, err)
}

func TestCommands_ArgValidation(t *testing.T) {
	t.Parallel()

	tests := [][]string{
		{"checkout"},
		{"checkout", "a", "b", "c"},
		{"switch"},
		{"branch"},
		{"save"},
		{"exit", "extra"},
		{"abort", "a", "b"},
		{"recover"},
		{"rename", "only-one"},
		{"clean", "a", "b"},
		{"config", "get"},
		{"config", "set", "auto.save"},
		{"status", "extra"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			t.Parallel()
			_, _, err := executeRoot(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, _, err := executeRoot(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "kaishaku "+Version))
}

func TestStatus_OutsideRepository(t *testing.T) {
	t.Chdir(t.TempDir())

	_, errOut, err := executeRoot(t, "status")
	require.Error(t, err)
	assert.True(t, IsSilent(err))
	assert.Contains(t, errOut, "Not a git repository")
}

func TestSilentError(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := NewSilentError(inner)
	assert.True(t, IsSilent(err))
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "boom", err.Error())
	assert.False(t, IsSilent(inner))
}

func TestWriteList_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeList(&buf, newOutputStyles(&buf), nil)
	assert.Equal(t, "No kaishaku sessions exist.\n", buf.String())
}

func TestWriteList_Entries(t *testing.T) {
	t.Parallel()

	modified := time.Date(2026, 3, 1, 12, 30, 45, 0, time.Local)
	entries := []session.ListEntry{
		{
			Session: &registry.Session{
				Name: "feature", OriginalBranch: "main", HeadRef: "abc123",
				LastModified: modified,
			},
			Active: true,
		},
		{
			Session:     &registry.Session{Name: "gone", OriginalBranch: "deleted", HeadRef: "def456"},
			HeadMissing: false, BranchMissing: true,
		},
		{
			Session:   &registry.Session{Name: "broken", OriginalBranch: "main"},
			Corrupted: true,
		},
	}

	var buf bytes.Buffer
	writeList(&buf, newOutputStyles(&buf), entries)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "kaishaku sessions:\n"))
	assert.Contains(t, out, "  * feature\n")
	assert.Contains(t, out, "Last modified: 2026-03-01 12:30:45")
	assert.Contains(t, out, "    gone\n")
	assert.Contains(t, out, "Last modified: unknown")
	assert.Contains(t, out, "Original branch: deleted (missing)")
	assert.Contains(t, out, "Session HEAD: def456\n")
	assert.Contains(t, out, "Use 'recover' to fix.")
	assert.Contains(t, out, "Corrupted: missing head.")
	assert.Contains(t, out, "kaishaku recover broken")
}

func TestWriteStatus_Dormant(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeStatus(&buf, newOutputStyles(&buf), &session.StatusReport{})
	assert.Equal(t, "No active kaishaku session.\n", buf.String())
}

func TestWriteStatus_Active(t *testing.T) {
	t.Parallel()

	report := &session.StatusReport{
		Session:     &registry.Session{Name: "feature", OriginalBranch: "main", HeadRef: "abc123"},
		CurrentHead: "abc123 initial commit",
		Changes:     []vcs.FileChange{{Path: "a.txt", Code: "??"}},
		Config:      settings.Defaults(),
	}

	var buf bytes.Buffer
	writeStatus(&buf, newOutputStyles(&buf), report)
	out := buf.String()

	assert.Contains(t, out, "Active session: feature\n")
	assert.Contains(t, out, "Original branch: main\n")
	assert.Contains(t, out, "Session HEAD: abc123\n")
	assert.Contains(t, out, "Current HEAD")
	assert.Contains(t, out, "  abc123 initial commit\n")
	assert.Contains(t, out, "  ?? a.txt\n")
	assert.Contains(t, out, "confirm.exit: yes")
	assert.Contains(t, out, "auto.stash: no")
	assert.Contains(t, out, "auto.save: no")
}

func TestWriteStatus_NoChanges(t *testing.T) {
	t.Parallel()

	report := &session.StatusReport{
		Session: &registry.Session{Name: "feature", OriginalBranch: "main"},
		Config:  settings.Defaults(),
	}

	var buf bytes.Buffer
	writeStatus(&buf, newOutputStyles(&buf), report)
	out := buf.String()

	assert.Contains(t, out, "Session HEAD: (unknown)")
	assert.Contains(t, out, "  none\n")
}

func TestOutputStyles_NoColorForBuffers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := newOutputStyles(&buf)
	assert.False(t, s.colorEnabled)
	assert.Equal(t, "text", s.render(s.green, "text"))

	rule := s.sectionRule("Configuration")
	assert.True(t, strings.HasPrefix(rule, "── Configuration ─"))
}

func TestSectionRule_FillsWidth(t *testing.T) {
	t.Parallel()

	s := outputStyles{width: 40}
	rule := s.sectionRule("Configuration")
	assert.Equal(t, 40, utf8.RuneCountInString(rule))
	assert.True(t, strings.HasPrefix(rule, "── Configuration ─"))

	narrow := outputStyles{width: 5}
	assert.True(t, strings.HasSuffix(narrow.sectionRule("Configuration"), " ─"))
}
