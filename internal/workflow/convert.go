package workflow

import (
	"strings"

	"atlas/internal/gateway"
	"atlas/internal/jobs"
)

func parsePhase(status *string) *jobs.Phase {
	if status == nil {
		return nil
	}
	phase, ok := jobs.ParsePhase(*status)
	if !ok {
		return nil
	}
	return &phase
}

func nonEmpty(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

func singleResult(res gateway.NewsResponse) jobs.SingleImageResult {
	prompt := res.Prompt
	if prompt == "" {
		prompt = res.Original
	}
	return jobs.SingleImageResult{
		ImageURL:    res.ImageURL,
		ImagePath:   res.ImagePath,
		Caption:     res.Caption,
		Prompt:      prompt,
		NewsSummary: res.NewsSummary,
		Duration:    res.Duration,
	}
}

func carouselUpdate(p gateway.CarouselProgress) jobs.Update {
	u := jobs.Update{
		Phase:     parsePhase(p.Status),
		TaskLabel: nonEmpty(p.CurrentTask),
		Percent:   p.Percent,
		Error:     p.Error,
	}
	if p.Result != nil {
		slides := make([]jobs.Slide, 0, len(p.Result.Images))
		for _, img := range p.Result.Images {
			slides = append(slides, jobs.Slide{URL: img.URL, Path: img.Path, Prompt: img.Prompt, Title: img.Title})
		}
		u.Result = jobs.CarouselResult{Images: slides, Caption: p.Result.Caption}
	}
	return u
}

func agentUpdate(p gateway.AgentProgress) jobs.Update {
	u := jobs.Update{
		Phase:           parsePhase(p.Status),
		TaskLabel:       nonEmpty(p.CurrentTask),
		Percent:         p.Percent,
		Stage:           nonEmpty(p.Stage),
		Logs:            p.Logs,
		CancelRequested: p.CancelRequested,
		Error:           p.Error,
	}
	if u.Phase != nil && *u.Phase == jobs.PhaseDone {
		result := jobs.AgentResult{Stage: jobs.StageDone, Logs: p.Logs}
		if u.Stage != nil {
			result.Stage = *u.Stage
		}
		if p.Summary != nil {
			result.Summary = *p.Summary
		}
		u.Result = result
	}
	return u
}

func videoUpdate(p gateway.VideoProgress) jobs.Update {
	u := jobs.Update{
		Phase:     parsePhase(p.Status),
		TaskLabel: nonEmpty(p.CurrentTask),
		Percent:   p.Percent,
		Error:     p.Error,
	}
	if p.Result != nil && strings.TrimSpace(*p.Result) != "" {
		u.Result = jobs.VideoResult{VideoURL: *p.Result}
	}
	return u
}
