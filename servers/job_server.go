package servers

import (
	"context"
	"fmt"

	"sitegen/interfaces"

	"github.com/robfig/cron/v3"
)

// JobServer は定期ジョブを cron で実行します。
type JobServer struct {
	log   interfaces.Logger
	cron  *cron.Cron
	names map[cron.EntryID]string
}

func NewJobServer(log interfaces.Logger) *JobServer {
	return &JobServer{
		log:   log,
		cron:  cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		names: make(map[cron.EntryID]string),
	}
}

func (j *JobServer) Name() string { return "jobs" }

// AddJob はジョブを登録します。spec は標準の5フィールド形式か "@every 10m" などの記述子です。
func (j *JobServer) AddJob(name, spec string, fn func(ctx context.Context) error) error {
	id, err := j.cron.AddFunc(spec, func() {
		if err := fn(context.Background()); err != nil {
			j.log.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		j.log.Debug("scheduled job finished", "job", name)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	j.names[id] = name
	j.log.Info("scheduled job registered", "job", name, "spec", spec, "id", int(id))
	return nil
}

// Jobs は登録済みのジョブ名を返します。
func (j *JobServer) Jobs() []string {
	var out []string
	for _, e := range j.cron.Entries() {
		out = append(out, j.names[e.ID])
	}
	return out
}

func (j *JobServer) Start() error {
	j.cron.Start()
	return nil
}

// Stop は実行中のジョブの完了を待ちます。
func (j *JobServer) Stop() error {
	<-j.cron.Stop().Done()
	return nil
}
