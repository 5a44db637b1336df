// Package redis provides a go-redis client component plus the Redis-backed
// pieces of the engine: an atomic credit ledger and a read-through cache of
// workflow definitions.
//
// The ledger debits with a Lua script so the balance check and decrement
// cannot interleave with another engine instance:
//
//	client, _ := redis.New(redis.Config{Enabled: true, Addr: "localhost:6379"}, log)
//	ledger := redis.NewLedger(client)
//	balance, err := ledger.ConsumeCredits(ctx, userID, 12, "workflow", workflowID, "workflow_execution")
//
// Keys are namespaced by Config.KeyPrefix:
//
//	<prefix>:credits:balance:<user>   integer balance
//	<prefix>:credits:entries:<user>   list of JSON ledger entries
//	<prefix>:users:roles              hash of user id to role
//	<prefix>:workflow:<id>            cached workflow JSON
package redis
