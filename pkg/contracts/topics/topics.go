package topics

const (
	// Notificações do ciclo de vida de apostas (fire-and-forget)
	BetNotifications = "bet_notifications"

	// Veredito do serviço externo de moderação de conteúdo
	ModerationVerdicts = "moderation_verdicts"

	// DLQ
	ModerationVerdictsDLQ = "moderation_verdicts_dlq"
)
