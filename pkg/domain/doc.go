/*
Package domain contains the core models of the intake wizard engine.

It defines the entities shared by every other package: the answers accumulated by a
device, the step definitions that form the wizard graph, navigation directions and
targets, and the lifecycle hooks used for observability. The package is kept pure and
free of I/O so that storage, transport and presentation stay in adapters.

# Key Entities

  - Answers / Fields: the nested section -> field -> value mapping persisted per device.
  - Record: the durable unit saved by a RecordStore (answers plus the device's route).
  - Step: one screen of the wizard, identified by a closed StepID enumeration.
  - Direction / Target: what a step asks for and where the resolver sends it.
  - LifecycleHooks: callbacks fired on step enter/leave, validation and submission.
*/
package domain
