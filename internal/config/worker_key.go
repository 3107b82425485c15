package config

type WorkerKeyStruct struct {
	PromoteCompletionsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PromoteCompletionsQueue: "promote_completions_queue",
}
