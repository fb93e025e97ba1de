package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"

	"pkt.systems/gitconsole/schema"
	"pkt.systems/pslog"
)

// State is the engine's dispatch state.
type State int

const (
	// StateIdle means no child is attached and the prompt is editable.
	StateIdle State = iota
	// StateRunning means input lines go to the attached child's stdin.
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

type promptState struct {
	text         string
	lastRendered string
}

// Engine is the console state machine. It owns the document, history,
// completion and prompt state; all of it is touched only from the goroutine
// driving Run. Pumps hand output over through the mailbox.
type Engine struct {
	cfg  schema.ConsoleConfig
	deps EngineDeps
	enc  encoding.Encoding
	id   schema.SessionID
	ctx  context.Context
	log  pslog.Logger

	doc        *Document
	history    *CommandHistory
	completion CompletionContext
	prompt     promptState
	repo       schema.RepositoryContext
	options    OptionSource

	state   State
	session *Session
	mailbox *mailbox

	watch   <-chan struct{}
	unwatch func()

	width   int
	height  int
	dirty   bool
	exiting bool
}

// NewEngine validates cfg and builds an idle engine. Call Run (or Start) to attach it.
func NewEngine(cfg schema.ConsoleConfig, deps EngineDeps) (*Engine, error) {
	if deps.Renderer == nil {
		return nil, errors.New("renderer dependency is required")
	}
	normalized, err := schema.NormalizeConsoleConfig(cfg)
	if err != nil {
		return nil, err
	}
	enc, err := ResolveEncoding(normalized.Encoding)
	if err != nil {
		return nil, err
	}
	if deps.Platform == nil {
		deps.Platform = DefaultPlatform()
	}
	id := schema.SessionID(uuid.NewString())
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("session", id)

	history := NewCommandHistory(normalized.HistoryMax)
	if deps.History != nil {
		entries, err := deps.History.Load()
		if err != nil {
			logger.Warn("history load failed", "err", err)
		}
		history = NewCommandHistoryFromPersisted(entries, normalized.HistoryMax)
	}

	return &Engine{
		cfg:        normalized,
		deps:       deps,
		enc:        enc,
		id:         id,
		ctx:        context.Background(),
		log:        logger,
		doc:        NewDocument(normalized.MaxLines),
		history:    history,
		completion: hiddenCompletion(),
		mailbox:    newMailbox(),
		width:      80,
		height:     24,
	}, nil
}

// ID returns the console session identifier.
func (e *Engine) ID() schema.SessionID {
	return e.id
}

// State returns the current dispatch state.
func (e *Engine) State() State {
	return e.state
}

// Document exposes the display buffer.
func (e *Engine) Document() *Document {
	return e.doc
}

// Repository returns the attached repository context.
func (e *Engine) Repository() schema.RepositoryContext {
	return e.repo
}

// Start attaches the working directory and renders the first prompt.
func (e *Engine) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	e.ctx = ctx
	e.attach(e.cfg.WorkingDir)
	e.writePrompt()
	e.dirty = true
	e.log.Info("console start", "dir", e.repo.WorkingDir, "repository", e.repo.IsRepository)
}

// Run drives the engine until ctx ends, keys closes or the user exits.
func (e *Engine) Run(ctx context.Context, keys <-chan Key, sizes <-chan Size) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.Start(ctx)
	defer e.shutdown()
	e.render()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("console stop", "reason", "context")
			return nil
		case k, ok := <-keys:
			if !ok {
				e.log.Info("console stop", "reason", "input closed")
				return nil
			}
			if e.HandleKey(k) {
				e.log.Info("console stop", "reason", "exit")
				return nil
			}
		case size, ok := <-sizes:
			if !ok {
				sizes = nil
				break
			}
			e.Resize(size)
		case <-e.mailbox.Ready():
			e.Drain()
		case _, ok := <-e.watch:
			if !ok {
				e.watch = nil
				break
			}
			e.RefreshPrompt()
		}

		if e.dirty {
			e.render()
		}
	}
}

// Drain runs every closure posted by the workers, in order.
func (e *Engine) Drain() {
	for _, fn := range e.mailbox.Drain() {
		fn()
	}
	e.dirty = true
}

func (e *Engine) post(fn func()) {
	e.mailbox.Post(fn)
}

// Resize records the surface geometry.
func (e *Engine) Resize(size Size) {
	if size.Width <= 0 {
		size.Width = 80
	}
	if size.Height <= 0 {
		size.Height = 24
	}
	e.width = size.Width
	e.height = size.Height
	e.dirty = true
}

// View snapshots the state a renderer needs.
func (e *Engine) View() View {
	snap := e.doc.Snapshot(e.height)
	completion := e.completion
	completion.Candidates = append([]string(nil), e.completion.Candidates...)
	return View{
		Lines:        snap.Lines,
		TotalLines:   snap.TotalLines,
		ScrollOffset: snap.ScrollOffset,
		AtBottom:     snap.AtBottom,
		Prompt:       snap.Prompt,
		Input:        snap.Input,
		Caret:        snap.Caret,
		Completion:   completion,
		Running:      e.state == StateRunning,
		WorkingDir:   e.repo.WorkingDir,
		Width:        e.width,
		Height:       e.height,
	}
}

func (e *Engine) render() {
	if err := e.deps.Renderer.Render(e.View()); err != nil {
		e.log.Debug("console render failed", "err", err)
	}
	e.dirty = false
}

// HandleKey applies one keystroke. It reports whether the console should exit.
func (e *Engine) HandleKey(k Key) bool {
	e.dirty = true
	switch k.Kind {
	case KeyCtrlC:
		e.cancel()
	case KeyEscape:
		if e.state == StateIdle {
			e.clearInput()
		}
	case KeyCtrlD:
		if e.state == StateIdle && e.doc.Input() == "" {
			return true
		}
		e.edit(e.doc.Delete)
	case KeyCtrlL:
		e.clearScreen()
	case KeyEnter:
		return e.handleEnter()
	case KeyTab:
		e.handleTab()
	case KeyUp:
		if e.completion.Visible {
			e.completion.Move(-1)
		} else {
			e.historyStep(e.history.NavigateUp)
		}
	case KeyDown:
		if e.completion.Visible {
			e.completion.Move(1)
		} else {
			e.historyStep(e.history.NavigateDown)
		}
	case KeyPageUp:
		e.doc.Scroll(e.page(), e.height)
	case KeyPageDown:
		e.doc.Scroll(-e.page(), e.height)
	case KeyLeft:
		e.doc.MoveLeft()
	case KeyRight:
		e.doc.MoveRight()
	case KeyHome, KeyCtrlA:
		e.doc.MoveStart()
	case KeyEnd, KeyCtrlE:
		e.doc.CaretToEnd()
	case KeyRune:
		r := k.Rune
		e.edit(func() bool { return e.doc.InsertRune(r) })
	case KeyBackspace:
		e.edit(e.doc.Backspace)
	case KeyDelete:
		e.edit(e.doc.Delete)
	case KeyCtrlW:
		e.edit(e.doc.DeleteWordBackward)
	case KeyCtrlU:
		e.edit(e.doc.KillLineStart)
	case KeyCtrlK:
		e.edit(e.doc.KillLineEnd)
	}
	return e.exiting
}

func (e *Engine) page() int {
	if e.height > 4 {
		return e.height - 3
	}
	return 1
}

func (e *Engine) edit(fn func() bool) {
	if fn() {
		e.doc.ResetScroll()
		e.refilter()
	}
}

// Submit runs line as if it had been typed at the prompt and entered.
func (e *Engine) Submit(line string) error {
	if e.state == StateRunning {
		return schema.ErrSessionBusy
	}
	e.doc.ReplaceCurrentInputSpan(line)
	e.hideCompletion()
	e.handleEnter()
	e.dirty = true
	return nil
}

func (e *Engine) handleEnter() bool {
	if selected, ok := e.completion.Selection(); ok {
		e.accept(selected)
		return false
	}
	e.hideCompletion()
	line := e.doc.Input()
	e.doc.ResetScroll()

	if e.state == StateRunning {
		e.doc.CommitLine(schema.StyleOutput)
		if err := e.session.WriteLine(line); err != nil {
			e.log.Warn("command input failed", "err", err)
			e.doc.AppendLine(err.Error(), schema.StyleError)
		}
		return false
	}

	e.doc.CommitLine(schema.StylePrompt)
	e.runCommand(line)
	return e.exiting
}

func (e *Engine) runCommand(line string) {
	command := strings.TrimSpace(line)
	if e.history.Append(command) && e.deps.History != nil {
		if err := e.deps.History.Append(command); err != nil {
			e.log.Warn("history persist failed", "err", err)
		}
	}
	if e.runBuiltin(command) {
		return
	}
	if strings.EqualFold(command, e.cfg.TerminalLiteral) {
		e.openTerminal()
		return
	}
	executable, args := SplitCommandLine(command)
	if e.cfg.CredentialCheck && e.deps.Credentials != nil && strings.EqualFold(executable, "git") &&
		!e.deps.Credentials.HasCredentialHelper(e.ctx, e.repo.WorkingDir) {
		e.log.Warn("command blocked", "reason", "no credential helper", "command", command)
		e.doc.AppendLine(schema.CredentialHelperWarning, schema.StyleError)
		e.writePrompt()
		return
	}
	e.startProcess(executable, args)
}

func (e *Engine) runBuiltin(command string) bool {
	name, arg := SplitCommandLine(command)
	switch strings.ToLower(name) {
	case "":
		e.writePrompt()
	case "help", "?":
		for _, line := range schema.HelpText {
			e.doc.AppendLine(line, schema.StyleHelp)
		}
		e.writePrompt()
	case "clear", "cls":
		e.doc.ClearAll()
		e.writePrompt()
	case "cd":
		e.changeDir(arg)
	case "exit", "quit":
		e.exiting = true
	default:
		return false
	}
	e.log.Debug("console builtin", "command", strings.ToLower(name))
	return true
}

func (e *Engine) openTerminal() {
	if e.deps.Terminal == nil {
		e.doc.AppendLine(schema.TerminalUnavailableMessage, schema.StyleError)
		e.writePrompt()
		return
	}
	if err := e.deps.Terminal.Open(e.ctx, e.repo.WorkingDir); err != nil {
		e.log.Warn("terminal open failed", "dir", e.repo.WorkingDir, "err", err)
		e.doc.AppendLine(err.Error(), schema.StyleError)
	}
	e.writePrompt()
}

func (e *Engine) startProcess(executable, args string) {
	var sess *Session
	sess, err := StartSession(pslog.ContextWithLogger(e.ctx, e.log), SessionOptions{
		Command:      executable,
		Args:         args,
		Dir:          e.repo.WorkingDir,
		Shell:        e.cfg.Shell,
		Encoding:     e.enc,
		DrainTimeout: e.cfg.DrainTimeout,
		Platform:     e.deps.Platform,
		Stdout: func(text string) {
			e.post(func() { e.doc.AppendLine(text, schema.StyleOutput) })
		},
		Stderr: func(text string) {
			e.post(func() { e.doc.AppendLine(text, schema.StyleError) })
		},
		OnExit: func(res ExitResult) {
			e.post(func() { e.onExit(sess, res) })
		},
	})
	if err != nil {
		e.doc.AppendLine(schema.StartFailureMessage(executable, args), schema.StyleError)
		e.writePrompt()
		return
	}
	e.session = sess
	e.state = StateRunning
	e.log.Info("command start", "command", executable, "args", args, "process", sess.ID())
}

func (e *Engine) onExit(sess *Session, res ExitResult) {
	if e.session != sess {
		return
	}
	e.session = nil
	e.state = StateIdle
	e.log.Info("command exit", "process", sess.ID(), "exit_code", res.ExitCode, "duration_ms", res.Duration.Milliseconds())
	if e.deps.Status != nil {
		e.deps.Status.Invalidate(e.repo)
	}
	// Unsent stdin text moves onto the new prompt.
	pending := e.doc.Input()
	e.doc.ReplaceCurrentInputSpan("")
	e.writePrompt()
	if pending != "" {
		e.doc.ReplaceCurrentInputSpan(pending)
	}
}

func (e *Engine) cancel() {
	if e.state == StateRunning {
		if err := e.session.RequestCancel(); err != nil {
			e.log.Warn("command interrupt failed", "err", err)
		}
		return
	}
	e.clearInput()
}

func (e *Engine) clearInput() {
	e.doc.ReplaceCurrentInputSpan("")
	e.hideCompletion()
	e.history.Reset()
}

func (e *Engine) clearScreen() {
	input := e.doc.Input()
	e.doc.ClearAll()
	if e.state == StateIdle {
		e.writePrompt()
	}
	e.doc.ReplaceCurrentInputSpan(input)
}

func (e *Engine) historyStep(step func() (string, bool)) {
	entry, ok := step()
	if !ok {
		return
	}
	e.doc.ReplaceCurrentInputSpan(entry)
	e.hideCompletion()
}

func (e *Engine) handleTab() {
	if !e.completion.Visible {
		e.refilter()
		return
	}
	if selected, ok := e.completion.Selection(); ok {
		e.accept(selected)
		return
	}
	e.completion.Move(1)
}

func (e *Engine) accept(selected string) {
	e.doc.ReplaceCurrentInputSpan(AcceptCompletion(e.doc.Input(), selected))
	e.refilter()
}

func (e *Engine) refilter() {
	if e.state != StateIdle || e.options == nil {
		e.hideCompletion()
		return
	}
	e.completion = FilterCompletion(e.ctx, e.doc.Input(), e.options)
}

func (e *Engine) hideCompletion() {
	e.completion = hiddenCompletion()
}

func (e *Engine) computePrompt() string {
	if !e.repo.IsRepository || e.deps.Status == nil {
		return schema.FormatPrompt(schema.NotRepositoryStatus)
	}
	status := strings.TrimSpace(e.deps.Status.StatusLine(e.ctx, e.repo))
	if status == "" {
		status = filepath.Base(e.repo.Root)
	}
	return schema.FormatPrompt(status)
}

func (e *Engine) writePrompt() {
	text := e.computePrompt()
	e.prompt.text = text
	e.prompt.lastRendered = text
	e.doc.BeginLine(text)
}

// RefreshPrompt recomputes the prompt and rewrites it in place when the text
// changed. It does nothing while a command runs; the exit path recomputes.
func (e *Engine) RefreshPrompt() {
	if e.state != StateIdle {
		return
	}
	text := e.computePrompt()
	e.prompt.text = text
	if text == e.prompt.lastRendered {
		return
	}
	e.doc.SetPrompt(text)
	e.prompt.lastRendered = text
	e.dirty = true
}

func (e *Engine) changeDir(arg string) {
	target := ""
	if words := SplitArguments(arg); len(words) > 0 {
		target = words[0]
	}
	home, _ := os.UserHomeDir()
	switch {
	case target == "" || target == "~":
		target = home
	case strings.HasPrefix(target, "~/"):
		target = filepath.Join(home, target[2:])
	case !filepath.IsAbs(target):
		target = filepath.Join(e.repo.WorkingDir, target)
	}
	info, err := os.Stat(target)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s is not a directory", target)
	}
	if err != nil {
		e.doc.AppendLine("cd: "+err.Error(), schema.StyleError)
		e.writePrompt()
		return
	}
	e.SetWorkingDir(target)
}

// SetWorkingDir attaches dir, clearing the display when it changed.
func (e *Engine) SetWorkingDir(dir string) {
	dir = filepath.Clean(dir)
	changed := dir != e.repo.WorkingDir
	e.attach(dir)
	if changed {
		e.doc.ClearAll()
		e.log.Info("console chdir", "dir", dir, "repository", e.repo.IsRepository)
	}
	e.writePrompt()
	e.dirty = true
}

func (e *Engine) attach(dir string) {
	repo := schema.RepositoryContext{WorkingDir: dir}
	if e.deps.Status != nil {
		repo = e.deps.Status.Resolve(e.ctx, dir)
	}
	previousRoot := e.repo.Root
	e.repo = repo
	if e.deps.Options != nil {
		e.options = e.deps.Options.ForRepository(repo)
	}
	if e.deps.Watcher == nil {
		return
	}
	if e.unwatch != nil && repo.Root == previousRoot {
		return
	}
	e.stopWatch()
	if repo.IsRepository {
		e.watch, e.unwatch = e.deps.Watcher.Watch(repo.Root)
	}
}

func (e *Engine) stopWatch() {
	if e.unwatch != nil {
		e.unwatch()
	}
	e.watch = nil
	e.unwatch = nil
}

func (e *Engine) shutdown() {
	e.stopWatch()
	sess := e.session
	if !sess.IsRunning() {
		return
	}
	if err := sess.RequestCancel(); err != nil {
		e.log.Warn("command interrupt failed", "err", err)
	}
	timer := time.NewTimer(e.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-sess.Done():
	case <-timer.C:
		if err := sess.Kill(); err != nil {
			e.log.Warn("command kill failed", "err", err)
		}
	}
}
