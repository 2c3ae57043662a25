package application

const helpText = `
======================================================================
Unified control - command reference
======================================================================

[Linked gestures] (actuator + lighting)
  f,<0-100>   actuator: forward <value>%
              lighting: brightness <value>
              e.g. f,50 -> brightness 50, forward 50%
  b,<0-100>   actuator: retreat <value>%
              lighting: brightness 100-<value>
              e.g. b,30 -> retreat 30%, brightness 70
  s           actuator: stop all motion
              lighting: pause/resume the travelling position

[Actuator only]
  START[,ALL|ACTUATORS|STEPPER|SERVO[+...]]   restore initial state
  GROUP1|GROUP2,<dir>,<pct>                   drive an actuator group
  STEPPER,<dir>,<pct>                         drive the stepper
  SERVO,<angle>,<pct>                         drive the servo
  combine debug commands with '+'

[Session]
  q, quit     stop the actuator, turn the lamps off and exit
  h, help     show this help
======================================================================
`
