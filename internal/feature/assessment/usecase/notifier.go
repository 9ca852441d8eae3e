package usecase

// Step は評価処理の進行段階です。
type Step string

const (
	StepConverting  Step = "converting"
	StepStarting    Step = "start"
	StepSummarizing Step = "summarize"
	StepFinalizing  Step = "finalize"
)

// Notifier は処理中の通知を受け取ります。どちらのフィールドもnilで構いません。
type Notifier struct {
	// Warn は再試行などの警告メッセージを受け取ります。
	Warn func(msg string)
	// Progress は各ステップの開始時に呼ばれます。
	Progress func(step Step)
}

func (n Notifier) warn(msg string) {
	if n.Warn != nil {
		n.Warn(msg)
	}
}

func (n Notifier) progress(step Step) {
	if n.Progress != nil {
		n.Progress(step)
	}
}
