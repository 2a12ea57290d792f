package config

// Template is the commented configuration written by "phytrace init".
const Template = `# phytrace run configuration
model: damped_oscillator

# Overrides for the model's default parameters.
params:
  k: 1.0
  c: 0.1
  m: 1.0

# Must match the model's state dimension. Omit to use the default.
initial_state: [1.0, 0.0]

time_span:
  start: 0.0
  end: 10.0

solver:
  method: RK45   # RK45, RK23, RK4 or EULER
  rtol: 1.0e-6
  atol: 1.0e-9

# seed: 42

evidence:
  dir: evidence
  plots: png     # png, svg or none

golden:
  backend: dir   # dir or badger
  dir: .golden
  rtol: 1.0e-6
  atol: 1.0e-9
`
