package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/cli"
	"github.com/rbright/debatebell/internal/prepbells"
)

// prepBellsPath resolves the rule file from config or the XDG default.
func prepBellsPath(e env) (string, error) {
	if path := strings.TrimSpace(e.cfg.Config.PrepBells.Path); path != "" {
		return path, nil
	}
	return prepbells.DefaultPath()
}

func (r Runner) loadRules(e env) (string, *prepbells.RuleSet, error) {
	path, err := prepBellsPath(e)
	if err != nil {
		return "", nil, err
	}
	loaded, err := prepbells.Load(path)
	if err != nil {
		return "", nil, err
	}
	for _, w := range loaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w)
		e.logger.Warn("prep bells warning", "path", path, "message", w)
	}
	return path, loaded.Rules, nil
}

func (r Runner) ListBells(_ context.Context, g cli.Globals, length time.Duration) error {
	e, err := r.prepare(g, "bells list")
	if err != nil {
		return err
	}
	defer e.close()

	_, rules, err := r.loadRules(e)
	if err != nil {
		return err
	}
	if !rules.HasBells() {
		fmt.Fprintln(r.Stdout, "no prep bells")
		return nil
	}

	w := tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tRULE")
	for i, desc := range rules.Descriptions() {
		fmt.Fprintf(w, "%d\t%s\n", i+1, desc)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if length <= 0 {
		return nil
	}
	fmt.Fprintf(r.Stdout, "\nbells for %s of prep:\n", bell.Clock(length))
	w = tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tRINGS")
	for _, event := range rules.Bells(length) {
		fmt.Fprintf(w, "%s\t%d\n", bell.Clock(event.Time), event.Sound.RingCount)
	}
	return w.Flush()
}

func (r Runner) AddBell(_ context.Context, g cli.Globals, rule prepbells.Rule) error {
	return r.editRules(g, "bells add", func(rules *prepbells.RuleSet) (string, error) {
		if err := rules.Add(rule); err != nil {
			return "", err
		}
		return "added prep bell " + rule.String(), nil
	})
}

func (r Runner) DeleteBell(_ context.Context, g cli.Globals, index int) error {
	return r.editRules(g, "bells delete", func(rules *prepbells.RuleSet) (string, error) {
		descriptions := rules.Descriptions()
		if index >= len(descriptions) {
			return "", fmt.Errorf("no prep bell #%d; there are %d", index+1, len(descriptions))
		}
		if err := rules.Delete(index); err != nil {
			return "", err
		}
		return "deleted prep bell " + descriptions[index], nil
	})
}

func (r Runner) ClearBells(_ context.Context, g cli.Globals, keepFinish bool) error {
	return r.editRules(g, "bells clear", func(rules *prepbells.RuleSet) (string, error) {
		if !rules.HasBellsOtherThanFinish() && (keepFinish || !rules.HasBells()) {
			return "nothing to clear", nil
		}
		rules.DeleteAll(keepFinish)
		if rules.HasBells() {
			return "cleared prep bells except the finish bell", nil
		}
		return "cleared prep bells", nil
	})
}

// editRules loads the rule file, applies edit, and saves it back.
func (r Runner) editRules(g cli.Globals, command string, edit func(*prepbells.RuleSet) (string, error)) error {
	e, err := r.prepare(g, command)
	if err != nil {
		return err
	}
	defer e.close()

	path, rules, err := r.loadRules(e)
	if err != nil {
		return err
	}
	message, err := edit(rules)
	if err != nil {
		return err
	}
	if err := prepbells.Save(path, rules); err != nil {
		return err
	}
	e.logger.Info("prep bells saved", "path", path, "rules", rules.Len())
	fmt.Fprintln(r.Stdout, message)
	return nil
}
