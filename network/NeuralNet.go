// Package network implements neural network function approximators
// built on Gorgonia computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet describes a neural network whose forward pass has been
// added to a Gorgonia computational graph. The network itself does not
// own a virtual machine; callers run the graph with whatever machine
// suits them and read predictions back through Output().
type NeuralNet interface {
	// Graph returns the computational graph holding the network
	Graph() *G.ExprGraph

	// CloneWithBatch clones the network onto a fresh graph with a new
	// input batch size, copying the current weight values
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the value of the input node before running the
	// forward pass
	SetInput([]float64) error

	// Set copies the weights of another network of the same
	// architecture into the receiver
	Set(NeuralNet) error

	// Learnables returns the nodes of the graph that should be
	// adjusted by gradient descent
	Learnables() G.Nodes

	// Model returns the learnables with their gradients for a Solver
	Model() []G.ValueGrad

	// Prediction returns the node holding the network output and
	// Output the value of that node after the last run
	Prediction() *G.Node
	Output() G.Value
}
