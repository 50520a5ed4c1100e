package rabbitmq

// ExchangeMembership is the direct exchange all membership events go through.
const ExchangeMembership = "membership"

// Routing keys, also used as queue names.
const (
	RoutingMembershipActivated = "membership.activated"
	RoutingWalletCredited      = "wallet.credited"
	RoutingMembershipExpiring  = "membership.expiring"
)

// QueueConfig binds a durable queue to the exchange under a routing key.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// MembershipQueues returns the queues consumed by the notification sender.
func MembershipQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: RoutingMembershipActivated, RoutingKey: RoutingMembershipActivated},
		{QueueName: RoutingWalletCredited, RoutingKey: RoutingWalletCredited},
		{QueueName: RoutingMembershipExpiring, RoutingKey: RoutingMembershipExpiring},
	}
}
