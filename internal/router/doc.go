// Package router decides, for one outbound message, which destinations
// receive it and what happens when deliveries fail.
//
// # Routing
//
// Every RoutedDestination carries a RoutingBehaviour and an optional
// MessageCondition. Route runs two passes:
//
//  1. Primary: Root and Additive destinations whose condition matches.
//  2. Fallback: Drain destinations whose condition matches, only when no
//     non-Root destination accepted the message in the primary pass.
//
// A failing destination never prevents the others from being attempted.
//
// # Escalation
//
// Each failed delivery is turned into a SelfError message and sent to every
// Root destination, whether or not the Root matched the original message.
// Failures while escalating are recorded in the DeliveryReport and are not
// escalated again, so a broken Root cannot amplify failures.
package router
