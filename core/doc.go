// Package core provides the foundational domain types and interfaces of the
// RACI swarm orchestration engine. It defines:
//
//   - Agents (role-bound participants that answer or delegate)
//   - Envelopes (immutable message units carrying routing + lifecycle metadata)
//   - Conversations (ordered envelope history with a lifecycle state machine)
//   - Swarms (named, reusable RACI role assignments over shared agents)
//   - The error taxonomy and the transition observer contract
//
// The package intentionally keeps implementation concerns (memory policy,
// routing registries, the orchestration loop) in their own packages so that
// core stays a dependency-free vocabulary shared by the rest of the module.
package core
