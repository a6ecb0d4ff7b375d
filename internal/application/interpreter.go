package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"smart-home-bot/internal/domain"
)

// Outcome labels reported to Metrics.
const (
	OutcomeOK            = "ok"
	OutcomeNotRecognized = "not_recognized"
	OutcomeAmbiguous     = "ambiguous"
	OutcomeNotFound      = "not_found"
	OutcomeInvalid       = "invalid"
	OutcomeStoreError    = "store_error"
	OutcomeUnavailable   = "unavailable"
)

// Result is the outcome of one utterance.
type Result struct {
	Intent domain.Intent
	Reply  string
	// Mutations describes every device change written to the store.
	Mutations []string
}

// Interpreter routes an utterance to the create, update, delete or chat
// handler. Every path ends in a user-facing reply; nothing is returned as an
// error.
type Interpreter struct {
	classifier *Classifier
	extractor  *Extractor
	resolver   *Resolver
	invoker    *Invoker
	store      DeviceStore
	catalog    TemplateCatalog
	users      UserDirectory
	replies    domain.Replies
	metrics    Metrics
	logger     *slog.Logger
}

func NewInterpreter(
	classifier *Classifier,
	extractor *Extractor,
	resolver *Resolver,
	invoker *Invoker,
	store DeviceStore,
	catalog TemplateCatalog,
	users UserDirectory,
	replies domain.Replies,
	metrics Metrics,
	logger *slog.Logger,
) *Interpreter {
	if catalog == nil {
		catalog = store
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Interpreter{
		classifier: classifier,
		extractor:  extractor,
		resolver:   resolver,
		invoker:    invoker,
		store:      store,
		catalog:    catalog,
		users:      users,
		replies:    replies,
		metrics:    metrics,
		logger:     logger,
	}
}

// Interpret returns the reply for text sent by userKey.
func (p *Interpreter) Interpret(ctx context.Context, text, userKey string) string {
	return p.Handle(ctx, text, userKey).Reply
}

func (p *Interpreter) Handle(ctx context.Context, text, userKey string) Result {
	intent := p.classifier.Classify(text)
	logger := p.logger.With("request_id", uuid.NewString(), "user", userKey, "intent", intent)
	logger.Info("interpreting utterance", "text", text)
	p.metrics.ObserveIntent(intent)

	var res Result
	switch intent {
	case domain.IntentCreate:
		res = p.create(ctx, logger, text, userKey)
	case domain.IntentDelete:
		res = p.delete(ctx, logger, text, userKey)
	case domain.IntentUpdate:
		res = p.update(ctx, logger, text, userKey)
	default:
		res = p.chat(ctx, logger, text)
	}
	res.Intent = intent

	if strings.TrimSpace(res.Reply) == "" {
		res.Reply = p.replies.NotRecognized
	}
	return res
}

func (p *Interpreter) update(ctx context.Context, logger *slog.Logger, text, userKey string) Result {
	devices, err := p.store.UserDevices(ctx, userKey)
	if err != nil {
		logger.Error("loading user devices", "error", err)
		p.metrics.ObserveOutcome(domain.IntentUpdate, OutcomeUnavailable)
		return Result{Reply: p.replies.DevicesUnavailable}
	}

	var cmds []domain.UpdateCommand
	if p.classifier.IsGroup(text) {
		cmds, err = p.extractor.Group(ctx, text, devices)
		if err != nil {
			return p.notRecognized(logger, domain.IntentUpdate, err)
		}
		if len(cmds) == 0 {
			return p.notRecognized(logger, domain.IntentUpdate, fmt.Errorf("empty group: %w", ErrNoResult))
		}
	} else {
		cmd, err := p.extractor.Update(ctx, text, devices)
		if err != nil {
			return p.notRecognized(logger, domain.IntentUpdate, err)
		}
		switch c := cmd.(type) {
		case domain.ErrorResult:
			return p.ambiguous(logger, domain.IntentUpdate, c)
		case domain.UpdateCommand:
			cmds = []domain.UpdateCommand{c}
		}
	}

	var res Result
	lines := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		line, mutation := p.applyUpdate(ctx, logger, devices, cmd)
		lines = append(lines, line)
		if mutation != "" {
			res.Mutations = append(res.Mutations, mutation)
		}
	}
	res.Reply = strings.Join(lines, "\n")
	return res
}

// applyUpdate resolves and writes one update. devices is the caller's
// snapshot and is refreshed in place after a successful write so later items
// of the same group merge into the new parameters.
func (p *Interpreter) applyUpdate(ctx context.Context, logger *slog.Logger, devices []domain.Device, cmd domain.UpdateCommand) (string, string) {
	if !cmd.Complete() {
		logger.Info("incomplete update command", "device", cmd.Device, "command", cmd.Command, "value", cmd.Value)
		p.metrics.ObserveOutcome(domain.IntentUpdate, OutcomeInvalid)
		return fmt.Sprintf(p.replies.InvalidUpdate, cmd.Device), ""
	}

	if strings.TrimSpace(cmd.Device) == "" {
		p.metrics.ObserveOutcome(domain.IntentUpdate, OutcomeNotFound)
		return fmt.Sprintf(p.replies.DeviceNotFound, cmd.Device), ""
	}

	target, ok := p.resolver.Resolve(ctx, cmd.Device, devices)
	if !ok {
		logger.Info("device not resolved", "device", cmd.Device)
		p.metrics.ObserveOutcome(domain.IntentUpdate, OutcomeNotFound)
		return fmt.Sprintf(p.replies.DeviceNotFound, cmd.Device), ""
	}

	if !target.HasParam(cmd.Command) {
		logger.Info("unknown device parameter", "device", target.Name, "param", cmd.Command)
		p.metrics.ObserveOutcome(domain.IntentUpdate, OutcomeInvalid)
		return fmt.Sprintf(p.replies.UnknownParam, target.Name, cmd.Command), ""
	}

	updated := target.WithParam(cmd.Command, cmd.Value)
	if err := p.store.UpdateParams(ctx, updated.ID, updated.Params); err != nil {
		logger.Error("updating device params", "device_id", updated.ID, "error", err)
		p.metrics.ObserveOutcome(domain.IntentUpdate, OutcomeStoreError)
		return fmt.Sprintf(p.replies.UpdateFailed, updated.Name), ""
	}

	for i := range devices {
		if devices[i].ID == updated.ID {
			devices[i] = updated
		}
	}

	logger.Info("device updated", "device", updated.Name, "device_id", updated.ID, "param", cmd.Command, "value", cmd.Value)
	p.metrics.ObserveOutcome(domain.IntentUpdate, OutcomeOK)
	reply := fmt.Sprintf(p.replies.Updated, updated.Name, cmd.Command, cmd.Value)
	return reply, fmt.Sprintf("%s: %s = %s", updated.Name, cmd.Command, cmd.Value)
}

func (p *Interpreter) create(ctx context.Context, logger *slog.Logger, text, userKey string) Result {
	templates, err := p.catalog.Templates(ctx)
	if err != nil {
		logger.Error("loading device templates", "error", err)
		p.metrics.ObserveOutcome(domain.IntentCreate, OutcomeUnavailable)
		return Result{Reply: p.replies.DevicesUnavailable}
	}

	cmd, err := p.extractor.Create(ctx, text, templates)
	if err != nil {
		logger.Info("creation command not recognized", "error", err)
		p.metrics.ObserveOutcome(domain.IntentCreate, OutcomeNotRecognized)
		return Result{Reply: p.replies.CreateNotRecog}
	}

	var create domain.CreateCommand
	switch c := cmd.(type) {
	case domain.ErrorResult:
		return p.ambiguous(logger, domain.IntentCreate, c)
	case domain.CreateCommand:
		create = c
	}

	query := create.Name
	if strings.TrimSpace(query) == "" {
		query = text
	}
	template, ok := p.resolver.Resolve(ctx, query, templates)
	if !ok {
		logger.Info("no similar device template", "name", create.Name)
		p.metrics.ObserveOutcome(domain.IntentCreate, OutcomeNotFound)
		return Result{Reply: p.replies.NoSimilarDevice}
	}

	userID, found, err := p.users.ResolveUser(ctx, userKey)
	if err != nil {
		logger.Error("resolving user", "error", err)
		p.metrics.ObserveOutcome(domain.IntentCreate, OutcomeStoreError)
		return Result{Reply: fmt.Sprintf(p.replies.CreateFailed, create.Name)}
	}
	if !found {
		p.metrics.ObserveOutcome(domain.IntentCreate, OutcomeNotFound)
		return Result{Reply: p.replies.UserNotFound}
	}

	name := create.Name
	if strings.TrimSpace(name) == "" {
		name = template.Name
	}

	device := domain.NewDevice{
		TemplateID: template.ID,
		Name:       name,
		Params:     overlayParams(template.Params, create.Params),
	}
	if err := p.store.AddOwned(ctx, userID, device); err != nil {
		logger.Error("adding device", "template_id", template.ID, "error", err)
		p.metrics.ObserveOutcome(domain.IntentCreate, OutcomeStoreError)
		return Result{Reply: fmt.Sprintf(p.replies.CreateFailed, name)}
	}

	logger.Info("device added", "name", name, "template_id", template.ID, "user_id", userID)
	p.metrics.ObserveOutcome(domain.IntentCreate, OutcomeOK)
	return Result{
		Reply:     fmt.Sprintf(p.replies.Created, name),
		Mutations: []string{fmt.Sprintf("added %s", name)},
	}
}

// overlayParams starts from the template defaults and takes extracted values
// only for keys the template already has.
func overlayParams(defaults, extracted map[string]string) map[string]string {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range extracted {
		if _, ok := out[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (p *Interpreter) delete(ctx context.Context, logger *slog.Logger, text, userKey string) Result {
	devices, err := p.store.UserDevices(ctx, userKey)
	if err != nil {
		logger.Error("loading user devices", "error", err)
		p.metrics.ObserveOutcome(domain.IntentDelete, OutcomeUnavailable)
		return Result{Reply: p.replies.DevicesUnavailable}
	}

	cmd, err := p.extractor.Delete(ctx, text, devices)
	if err != nil {
		return p.notRecognized(logger, domain.IntentDelete, err)
	}

	var del domain.DeleteCommand
	switch c := cmd.(type) {
	case domain.ErrorResult:
		return p.ambiguous(logger, domain.IntentDelete, c)
	case domain.DeleteCommand:
		del = c
	}

	id, err := strconv.ParseInt(strings.TrimSpace(del.ID), 10, 64)
	if err != nil {
		return p.notRecognized(logger, domain.IntentDelete, fmt.Errorf("parsing device id %q: %v: %w", del.ID, err, ErrNoResult))
	}

	target, ok := findDevice(devices, id)
	if !ok {
		logger.Info("device id not owned by user", "device_id", id)
		p.metrics.ObserveOutcome(domain.IntentDelete, OutcomeNotFound)
		return Result{Reply: fmt.Sprintf(p.replies.DeviceNotFound, del.Device)}
	}

	if err := p.store.RemoveOwned(ctx, id); err != nil {
		logger.Error("removing device", "device_id", id, "error", err)
		p.metrics.ObserveOutcome(domain.IntentDelete, OutcomeStoreError)
		return Result{Reply: fmt.Sprintf(p.replies.DeleteFailed, target.Name)}
	}

	logger.Info("device removed", "device", target.Name, "device_id", id)
	p.metrics.ObserveOutcome(domain.IntentDelete, OutcomeOK)
	return Result{
		Reply:     fmt.Sprintf(p.replies.Deleted, target.Name),
		Mutations: []string{fmt.Sprintf("removed %s", target.Name)},
	}
}

func findDevice(devices []domain.Device, id int64) (domain.Device, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Device{}, false
}

func (p *Interpreter) chat(ctx context.Context, logger *slog.Logger, text string) Result {
	reply := p.invoker.Invoke(ctx, buildChatPrompt(text))
	if reply == "" {
		logger.Warn("chat completion unavailable")
		p.metrics.ObserveOutcome(domain.IntentChat, OutcomeUnavailable)
		return Result{Reply: p.replies.ChatUnavailable}
	}
	p.metrics.ObserveOutcome(domain.IntentChat, OutcomeOK)
	return Result{Reply: reply}
}

func (p *Interpreter) notRecognized(logger *slog.Logger, intent domain.Intent, err error) Result {
	if errors.Is(err, ErrNoResult) {
		logger.Info("command not recognized", "error", err)
	} else {
		logger.Error("extracting command", "error", err)
	}
	p.metrics.ObserveOutcome(intent, OutcomeNotRecognized)
	return Result{Reply: p.replies.NotRecognized}
}

// ambiguous surfaces the model's clarification request verbatim.
func (p *Interpreter) ambiguous(logger *slog.Logger, intent domain.Intent, res domain.ErrorResult) Result {
	logger.Info("model asked for clarification", "message", res.Message)
	p.metrics.ObserveOutcome(intent, OutcomeAmbiguous)
	return Result{Reply: res.Message}
}
