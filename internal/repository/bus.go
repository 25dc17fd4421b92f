package repository

// MessageBus is the minimal publishing surface the store needs. The NATS
// transport provides the real implementation; tests use an in-process fake.
type MessageBus interface {
	Publish(topic string, data []byte) error
}

// Bus topics. payments.confirmations is consumed (simulated confirmer
// channel); the others are emitted after a commit.
const (
	TopicPaymentsConfirmations = "payments.confirmations"
	TopicDepositsSettled       = "deposits.settled"
	TopicWithdrawalsRequested  = "withdrawals.requested"
)
