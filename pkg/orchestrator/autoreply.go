package orchestrator

import (
	"context"
	"time"

	"github.com/omnitalk/omnitalk/pkg/core/types"
	"github.com/omnitalk/omnitalk/pkg/gateway"
)

// autoReplyTask asks the avatar worker to answer one partner turn.
type autoReplyTask struct {
	incoming   string
	sourceLang string // reply source: the triggering turn's target
	targetLang string // reply target: the triggering turn's source
}

// enqueueAutoReply hands a task to the worker without blocking. The queue
// holds a single task; if one is already pending the new trigger is dropped,
// which caps avatar work at one reply per committed partner turn.
func (o *Orchestrator) enqueueAutoReply(task autoReplyTask) {
	select {
	case o.tasks <- task:
	default:
		o.logger.Warn("auto-reply already pending, dropping trigger")
		o.metrics.AutoRepliesTotal.WithLabelValues("dropped").Inc()
	}
}

// autoReplyWorker serializes avatar replies. Replies go through the same
// ProcessInput path as every other turn, with AutoReply set so they can
// never trigger another reply. All failures here are logged and dropped:
// the avatar is a convenience, never a reason to surface an error.
func (o *Orchestrator) autoReplyWorker() {
	for {
		select {
		case <-o.done:
			return
		case task := <-o.tasks:
			o.runAutoReply(task)
		}
	}
}

func (o *Orchestrator) runAutoReply(task autoReplyTask) {
	profile := o.Profile()
	if profile == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	start := o.now()
	reply, err := o.gw.AvatarReply(ctx, gateway.AvatarRequest{
		IncomingText: task.incoming,
		Profile:      profile,
		History:      o.state.LastTurns(o.avatarTurns),
	})
	o.metrics.GatewayDuration.WithLabelValues("avatar").Observe(time.Since(start).Seconds())
	if err != nil {
		o.logger.Warn("avatar reply failed", "error", err)
		o.metrics.AutoRepliesTotal.WithLabelValues("error").Inc()
		return
	}

	// A short pause so the reply does not land unnaturally fast.
	o.sleep(o.autoReplyDelay)

	_, err = o.ProcessInput(ctx, Input{
		Text:       reply,
		SourceLang: task.sourceLang,
		TargetLang: task.targetLang,
		Sender:     types.SenderUser,
		Kind:       types.KindText,
		AutoReply:  true,
	})
	if err != nil {
		// Most often the user started something while we were thinking.
		o.logger.Warn("auto-reply dropped", "error", err)
		o.metrics.AutoRepliesTotal.WithLabelValues("dropped").Inc()
		return
	}
	o.metrics.AutoRepliesTotal.WithLabelValues("ok").Inc()
}
