// Package events defines the simulation events emitted on the event bus.
//
// Available event types:
//   - PartFailed: a part broke down and started its repair
//   - PartRepaired: a repair completed and the part works again
//   - RepairHurried: the maintenance policy hurried a repair
//   - PartServiced: the maintenance policy took a worn part down for repair
//   - DayPlanned: a planning cycle finished and its energy was drawn
package events
