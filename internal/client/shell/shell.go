// Package shell implements the interactive notes REPL on top of the
// notebook, the preferences and the quota tracker.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/client/notes"
	"github.com/atinyakov/SecureNotes/internal/client/prefs"
	"github.com/atinyakov/SecureNotes/internal/client/quota"
	"github.com/atinyakov/SecureNotes/internal/client/ui"
)

// Prompt is printed before every command.
const Prompt = "notes> "

// settleTimeout bounds how long exit waits for pending writes.
const settleTimeout = 30 * time.Second

// LineReader supplies command lines. It returns io.EOF when input ends.
type LineReader interface {
	Line(prompt string) (string, error)
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// Shell dispatches REPL commands.
type Shell struct {
	notebook *notes.Notebook
	prefs    *prefs.Preferences
	quota    *quota.Tracker
	out      io.Writer
	now      func() time.Time
	log      *zap.Logger

	commands map[string]command
	order    []string
}

// Option configures a Shell.
type Option func(*Shell)

// WithClock overrides the clock used for relative dates.
func WithClock(now func() time.Time) Option {
	return func(s *Shell) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Shell) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Shell writing to out.
func New(nb *notes.Notebook, p *prefs.Preferences, q *quota.Tracker, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		notebook: nb,
		prefs:    p,
		quota:    q,
		out:      out,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.register()
	return s
}

func (s *Shell) register() {
	s.commands = map[string]command{}
	add := func(name, usage, help string, run func(context.Context, []string) error) {
		s.commands[name] = command{usage: usage, help: help, run: run}
		s.order = append(s.order, name)
	}
	add("list", "list", "show all notes", s.list)
	add("new", "new", "create a note and open it", s.create)
	add("open", "open <id>", "open a note for editing", s.open)
	add("title", "title <text>", "set the title of the open note", s.title)
	add("write", "write <text>", `replace the content of the open note ("\n" starts a new line)`, s.write)
	add("append", "append <text>", "add a line to the open note", s.appendLine)
	add("show", "show", "print the open note", s.show)
	add("delete", "delete [id]", "delete a note (default: the open one)", s.remove)
	add("sync", "sync", "reload notes from the vault", s.sync)
	add("quota", "quota", "show storage usage", s.showQuota)
	add("prefs", "prefs", "show preferences", s.showPrefs)
	add("set", "set <key> <value>", "change a preference", s.set)
	add("status", "status", "show sync status", s.status)
	add("help", "help", "show this help", s.help)
}

// Run reads commands until "exit", "quit" or the end of input, then settles
// pending writes.
func (s *Shell) Run(ctx context.Context, in LineReader) error {
	for {
		line, err := in.Line(Prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			break
		}
		if err != nil {
			return err
		}
		quit, err := s.Exec(ctx, line)
		if err != nil {
			fmt.Fprintln(s.out, ui.Error.Sprint("Error: "+err.Error()))
		}
		if quit {
			break
		}
	}
	return s.Exit(ctx)
}

// Exec runs one command line. quit is true for "exit" and "quit".
func (s *Shell) Exec(ctx context.Context, line string) (quit bool, err error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	if name == "" {
		return false, nil
	}
	if name == "exit" || name == "quit" {
		return true, nil
	}
	cmd, ok := s.commands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q, try help", name)
	}
	var args []string
	if rest = strings.TrimSpace(rest); rest != "" {
		args = []string{rest}
	}
	return false, cmd.run(ctx, args)
}

// Exit flushes pending writes and reports notes that are still unsaved.
func (s *Shell) Exit(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	err := s.notebook.Settle(ctx)
	s.notebook.Close()
	if err != nil {
		return fmt.Errorf("waiting for pending saves: %w", err)
	}
	if dirty := s.notebook.Dirty(); len(dirty) > 0 {
		fmt.Fprintln(s.out, ui.Warning.Sprintf("%d note(s) were not saved: %s", len(dirty), strings.Join(dirty, ", ")))
	}
	return nil
}

func (s *Shell) list(context.Context, []string) error {
	all := s.notebook.Notes()
	if len(all) == 0 {
		fmt.Fprintln(s.out, ui.Muted.Sprint("no notes"))
		return nil
	}
	selected, _ := s.notebook.Selected()
	now := s.now()
	for _, n := range all {
		marker := " "
		if n.ID == selected {
			marker = ">"
		}
		title := n.Title
		if title == "" {
			title = notes.UntitledTitle
		}
		line := fmt.Sprintf("%s %s  %s  %s", marker, n.ID, ui.Bold.Sprint(title), ui.Muted.Sprint(notes.FormatAge(n.UpdatedAt, now)))
		if n.Dirty {
			line += " " + ui.Warning.Sprint("*")
		}
		if msg := s.notebook.NoteError(n.ID); msg != "" {
			line += " " + ui.Error.Sprint("! "+msg)
		}
		fmt.Fprintln(s.out, line)
	}
	return nil
}

func (s *Shell) create(context.Context, []string) error {
	n := s.notebook.Create()
	fmt.Fprintln(s.out, ui.Success.Sprintf("Created note %s", n.ID))
	return nil
}

func (s *Shell) open(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: open <id>")
	}
	if _, err := s.notebook.Select(args[0]); err != nil {
		return err
	}
	return s.show(ctx, nil)
}

func (s *Shell) title(_ context.Context, args []string) error {
	buf, ok := s.notebook.Buffer()
	if !ok {
		return notes.ErrNoSelection
	}
	return s.notebook.Update(strings.Join(args, " "), buf.Content)
}

func (s *Shell) write(_ context.Context, args []string) error {
	buf, ok := s.notebook.Buffer()
	if !ok {
		return notes.ErrNoSelection
	}
	return s.notebook.Update(buf.Title, unescape(strings.Join(args, " ")))
}

func (s *Shell) appendLine(_ context.Context, args []string) error {
	buf, ok := s.notebook.Buffer()
	if !ok {
		return notes.ErrNoSelection
	}
	content := buf.Content
	if content != "" {
		content += "\n"
	}
	return s.notebook.Update(buf.Title, content+unescape(strings.Join(args, " ")))
}

func (s *Shell) show(context.Context, []string) error {
	buf, ok := s.notebook.Buffer()
	if !ok {
		return notes.ErrNoSelection
	}
	title := buf.Title
	if title == "" {
		title = notes.UntitledTitle
	}
	fmt.Fprintln(s.out, ui.Bold.Sprint(title))
	if buf.Content != "" {
		fmt.Fprintln(s.out, buf.Content)
	}
	return nil
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	id, ok := s.notebook.Selected()
	if len(args) > 0 {
		id, ok = args[0], true
	}
	if !ok {
		return errors.New("usage: delete [id]")
	}
	if err := s.notebook.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(s.out, ui.Success.Sprintf("Deleted note %s", id))
	return nil
}

func (s *Shell) sync(ctx context.Context, _ []string) error {
	all := s.notebook.LoadAll(ctx)
	fmt.Fprintln(s.out, ui.Info.Sprintf("%d note(s)", len(all)))
	return nil
}

func (s *Shell) showQuota(ctx context.Context, _ []string) error {
	q, err := s.quota.Refresh(ctx)
	if err != nil {
		cached, ok := s.quota.Snapshot()
		if !ok {
			return err
		}
		q = cached
		fmt.Fprintln(s.out, ui.Warning.Sprint("showing last known usage"))
	}
	line := quota.Label(q)
	if pct, ok := quota.Percent(q); ok {
		line = fmt.Sprintf("%s %s %d%%", ui.Bar(quota.DisplayPercent(q), 20), line, pct)
	}
	fmt.Fprintln(s.out, line)
	return nil
}

func (s *Shell) showPrefs(context.Context, []string) error {
	values := s.prefs.All()
	keys := make([]string, 0, len(values))
	for k := range values {
		if !slices.Contains(prefs.Keys, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range append(slices.Clone(prefs.Keys), keys...) {
		line := fmt.Sprintf("%-10s %s", k, values[k])
		if choices, ok := prefs.Choices[k]; ok {
			line += "  " + ui.Muted.Sprint(strings.Join(choices, "|"))
		}
		fmt.Fprintln(s.out, line)
	}
	return nil
}

func (s *Shell) set(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: set <key> <value>")
	}
	key, value, ok := strings.Cut(args[0], " ")
	if !ok {
		return errors.New("usage: set <key> <value>")
	}
	if err := s.prefs.Set(ctx, key, strings.TrimSpace(value)); err != nil {
		return err
	}
	fmt.Fprintln(s.out, ui.Success.Sprintf("%s = %s", key, s.prefs.Get(key)))
	return nil
}

func (s *Shell) status(context.Context, []string) error {
	st := s.notebook.Status()
	switch {
	case st.Syncing:
		fmt.Fprintln(s.out, ui.Info.Sprint("Syncing..."))
	case st.Saving:
		fmt.Fprintln(s.out, ui.Info.Sprint("Saving..."))
	case st.Pending:
		fmt.Fprintln(s.out, ui.Info.Sprint("Unsaved changes"))
	case st.SaveError == "":
		fmt.Fprintln(s.out, ui.Success.Sprint("All changes saved"))
	}
	if st.SaveError != "" {
		fmt.Fprintln(s.out, ui.Error.Sprint(st.SaveError))
	}
	return nil
}

func (s *Shell) help(context.Context, []string) error {
	for _, name := range s.order {
		c := s.commands[name]
		fmt.Fprintf(s.out, "  %-20s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(s.out, "  %-20s %s\n", "exit", "save pending changes and leave")
	return nil
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
