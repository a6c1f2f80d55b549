package models

import (
	"errors"
	"fmt"
)

const (
	MaxCircuitsPerJob   = 50
	MaxShotsPerCircuit  = 2000
	MaxQubitsPerCircuit = 20
)

// OperationKind names a native gate or the final measurement.
type OperationKind string

const (
	OperationRZ      OperationKind = "RZ"
	OperationR       OperationKind = "R"
	OperationRXX     OperationKind = "RXX"
	OperationMeasure OperationKind = "MEASURE"
)

// Operation is one step of a quantum circuit. Angles are in units of pi.
type Operation struct {
	Operation OperationKind `json:"operation" yaml:"operation"`
	Phi       *float64      `json:"phi,omitempty" yaml:"phi,omitempty"`
	Theta     *float64      `json:"theta,omitempty" yaml:"theta,omitempty"`
	Qubit     *int          `json:"qubit,omitempty" yaml:"qubit,omitempty"`
	Qubits    []int         `json:"qubits,omitempty" yaml:"qubits,omitempty"`
}

// QuantumCircuit is a single circuit with its repetition count.
type QuantumCircuit struct {
	Repetitions    int         `json:"repetitions" yaml:"repetitions"`
	NumberOfQubits int         `json:"number_of_qubits" yaml:"number_of_qubits"`
	Operations     []Operation `json:"quantum_circuit" yaml:"quantum_circuit"`
}

// QuantumCircuits is the payload of a circuit job.
type QuantumCircuits struct {
	Circuits []QuantumCircuit `json:"circuits" yaml:"circuits"`
}

// JobSubmission is the request body of the submit endpoint.
type JobSubmission struct {
	JobType JobType         `json:"job_type" yaml:"job_type"`
	Label   string          `json:"label,omitempty" yaml:"label,omitempty"`
	Payload QuantumCircuits `json:"payload" yaml:"payload"`
}

// NewCircuitSubmission builds a submission for the given circuits.
func NewCircuitSubmission(label string, circuits ...QuantumCircuit) JobSubmission {
	return JobSubmission{
		JobType: JobTypeQuantumCircuit,
		Label:   label,
		Payload: QuantumCircuits{Circuits: circuits},
	}
}

func (s JobSubmission) Validate() error {
	if s.JobType != JobTypeQuantumCircuit {
		return fmt.Errorf("unsupported job type %q", s.JobType)
	}
	n := len(s.Payload.Circuits)
	if n < 1 || n > MaxCircuitsPerJob {
		return fmt.Errorf("a job must contain between 1 and %d circuits, got %d", MaxCircuitsPerJob, n)
	}
	for i, c := range s.Payload.Circuits {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("circuit %d: %w", i, err)
		}
	}
	return nil
}

func (c QuantumCircuit) Validate() error {
	if c.Repetitions < 1 || c.Repetitions > MaxShotsPerCircuit {
		return fmt.Errorf("repetitions must be between 1 and %d", MaxShotsPerCircuit)
	}
	if c.NumberOfQubits < 1 || c.NumberOfQubits > MaxQubitsPerCircuit {
		return fmt.Errorf("number_of_qubits must be between 1 and %d", MaxQubitsPerCircuit)
	}
	if len(c.Operations) == 0 {
		return errors.New("circuit has no operations")
	}
	last := len(c.Operations) - 1
	for i, op := range c.Operations {
		if op.Operation == OperationMeasure && i != last {
			return fmt.Errorf("operation %d: MEASURE must be the last operation", i)
		}
		if err := op.validate(c.NumberOfQubits); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	if c.Operations[last].Operation != OperationMeasure {
		return errors.New("circuit must end with MEASURE")
	}
	return nil
}

func (o Operation) validate(numQubits int) error {
	checkQubit := func(q int) error {
		if q < 0 || q >= numQubits {
			return fmt.Errorf("qubit %d out of range", q)
		}
		return nil
	}
	switch o.Operation {
	case OperationRZ:
		if o.Phi == nil || o.Qubit == nil {
			return errors.New("RZ requires phi and qubit")
		}
		return checkQubit(*o.Qubit)
	case OperationR:
		if o.Phi == nil || o.Theta == nil || o.Qubit == nil {
			return errors.New("R requires phi, theta and qubit")
		}
		return checkQubit(*o.Qubit)
	case OperationRXX:
		if o.Theta == nil || len(o.Qubits) != 2 {
			return errors.New("RXX requires theta and two qubits")
		}
		if o.Qubits[0] == o.Qubits[1] {
			return errors.New("RXX qubits must differ")
		}
		for _, q := range o.Qubits {
			if err := checkQubit(q); err != nil {
				return err
			}
		}
		return nil
	case OperationMeasure:
		return nil
	default:
		return fmt.Errorf("unknown operation %q", o.Operation)
	}
}

func RZ(phi float64, qubit int) Operation {
	return Operation{Operation: OperationRZ, Phi: &phi, Qubit: &qubit}
}

func R(phi, theta float64, qubit int) Operation {
	return Operation{Operation: OperationR, Phi: &phi, Theta: &theta, Qubit: &qubit}
}

func RXX(theta float64, q0, q1 int) Operation {
	return Operation{Operation: OperationRXX, Theta: &theta, Qubits: []int{q0, q1}}
}

func Measure() Operation {
	return Operation{Operation: OperationMeasure}
}
