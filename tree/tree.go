package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/feature"
)

// DecisionError represents an error deciding the label value for a sample
type DecisionError string

/*
ErrUnseenValue is the error returned by the Decide method of a node when
the sample has a value for the feature of a decision node that was never
seen when the tree was grown, so there is no subtree to continue deciding
through. It is returned wrapped with the feature and value involved, so
it must be tested for with errors.Is.
*/
const ErrUnseenValue = DecisionError("value not seen when the tree was grown")

func (de DecisionError) Error() string {
	return string(de)
}

/*
Node is a node of a decision tree. A tree is a *Node with subtree nodes
hanging from it, so the methods on *Node apply to the whole tree rooted
at the node they are invoked on.
*/
type Node struct {
	// The criterion on the parent node's feature that samples must
	// satisfy to be decided through this node. It is nil on the root
	// node of a tree.
	Criterion *feature.Criterion
	// The feature on whose values this node splits the samples that
	// reach it. It is only set on decision nodes.
	Feature feature.Feature
	// The nodes directly under this node, one per value of Feature the
	// node splits on, in the order the values were taken when the tree
	// was grown.
	Subtrees []*Node
	// The information gain in bits obtained by splitting the samples
	// that reach this node on Feature. It is 0 on leaf nodes.
	Gain float64
	// Leaf indicates the node assigns a label value instead of
	// splitting on a feature.
	Leaf bool
	// The label value the node assigns to samples that reach it. It is
	// only set on leaf nodes.
	Label string
	// Estimated indicates no training samples reached the node, so its
	// label value was taken from the samples that reached its parent
	// node instead.
	Estimated bool
}

/*
NewDecision takes a feature, the information gain in bits obtained by
splitting on it and a list of subtree nodes and returns a decision node
that splits samples on the feature over the given subtrees.
*/
func NewDecision(f feature.Feature, gain float64, subtrees ...*Node) *Node {
	return &Node{Feature: f, Gain: gain, Subtrees: subtrees}
}

/*
NewLeaf takes a label value and returns a leaf node that assigns the
value to every sample that reaches it.
*/
func NewLeaf(label string) *Node {
	return &Node{Leaf: true, Label: label}
}

/*
Decide takes a context.Context and a sample and returns the label value
the tree assigns to the sample and an error if no value can be decided.

Starting at the node, the value the sample has for the feature of the
current decision node selects the subtree to continue deciding through,
until a leaf node is reached and its label value is returned. The value
for a feature is requested from the sample exactly once, when the
decision node on that feature is reached. If no subtree matches the
sample's value, an error wrapping ErrUnseenValue is returned.
*/
func (n *Node) Decide(ctx context.Context, s feature.Sample) (string, error) {
	if n == nil {
		return "", fmt.Errorf("nil tree cannot decide samples")
	}
	for !n.Leaf {
		v, err := s.ValueFor(ctx, n.Feature)
		if err != nil {
			return "", err
		}
		var selected *Node
		for _, sn := range n.Subtrees {
			if sn.Criterion != nil && sn.Criterion.Value() == v {
				selected = sn
				break
			}
		}
		if selected == nil {
			return "", fmt.Errorf("deciding on feature %s: value %q: %w", n.Feature.Name(), v, ErrUnseenValue)
		}
		n = selected
	}
	return n.Label, nil
}

/*
Rules returns the decision rules the tree encodes, one per leaf node, in
the order the leaves are reached traversing subtrees depth-first. Each
rule joins the tests a sample must pass from the root to a leaf with
"and" and states the label value the leaf assigns after "=>". The rules
are rebuilt from the tree on every call, so calling Rules again on the
same tree returns the same slice.
*/
func (n *Node) Rules() []string {
	return n.rules(nil)
}

func (n *Node) rules(tests []string) []string {
	if n.Criterion != nil {
		tests = append(append([]string{}, tests...), fmt.Sprintf("%s = %s", n.Criterion.Feature().Name(), n.Criterion.Value()))
	}
	if n.Leaf {
		rule := fmt.Sprintf("=> %s", n.Label)
		if len(tests) > 0 {
			rule = fmt.Sprintf("%s %s", strings.Join(tests, " and "), rule)
		}
		return []string{rule}
	}
	var rules []string
	for _, sn := range n.Subtrees {
		rules = append(rules, sn.rules(tests)...)
	}
	return rules
}

/*
Test takes a context.Context, a dataset and a label feature and returns
three values:
 * the rate of samples in the dataset for which the tree decides exactly
   the value the sample has for the label feature
 * the number of samples the tree could not decide because they have
   values that were never seen when the tree was grown, which count
   against the rate
 * an error if the dataset is empty or the values for a sample could not
   be obtained. If this is not nil, the other values will be 0.0 and 0
   respectively.
*/
func (n *Node) Test(ctx context.Context, ds dataset.Dataset, label feature.Feature) (float64, int, error) {
	samples, err := ds.Samples(ctx)
	if err != nil {
		return 0.0, 0, err
	}
	if len(samples) == 0 {
		return 0.0, 0, fmt.Errorf("cannot test a tree on an empty dataset")
	}
	var hits float64
	var unseen int
	for _, s := range samples {
		decided, err := n.Decide(ctx, s)
		if err != nil {
			if !errors.Is(err, ErrUnseenValue) {
				return 0.0, 0, err
			}
			unseen++
			continue
		}
		v, err := s.ValueFor(ctx, label)
		if err != nil {
			return 0.0, 0, err
		}
		if decided == v {
			hits++
		}
	}
	return hits / float64(len(samples)), unseen, nil
}

/*
Leaves returns the number of leaf nodes in the tree.
*/
func (n *Node) Leaves() int {
	if n.Leaf {
		return 1
	}
	var count int
	for _, sn := range n.Subtrees {
		count += sn.Leaves()
	}
	return count
}

/*
Depth returns the number of decision nodes on the longest path from the
root of the tree to one of its leaves.
*/
func (n *Node) Depth() int {
	if n.Leaf {
		return 0
	}
	var deepest int
	for _, sn := range n.Subtrees {
		if d := sn.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

/*
Features returns the features the tree splits on, in the order they are
first found traversing subtrees depth-first.
*/
func (n *Node) Features() []feature.Feature {
	return n.features(nil, map[string]bool{})
}

func (n *Node) features(fs []feature.Feature, seen map[string]bool) []feature.Feature {
	if n.Leaf {
		return fs
	}
	if !seen[n.Feature.Name()] {
		seen[n.Feature.Name()] = true
		fs = append(fs, n.Feature)
	}
	for _, sn := range n.Subtrees {
		fs = sn.features(fs, seen)
	}
	return fs
}

func (n *Node) String() string {
	var result string
	if n.Criterion != nil {
		result = fmt.Sprintf("{ %v }\n", n.Criterion)
	}
	if n.Leaf {
		label := n.Label
		if n.Estimated {
			label = fmt.Sprintf("%s (estimated)", label)
		}
		result = fmt.Sprintf("%s{ => %s }\n", result, label)
	} else {
		result = fmt.Sprintf("%s{ %s informationGain=%f }\n", result, n.Feature.Name(), n.Gain)
	}
	if len(n.Subtrees) > 0 {
		result = fmt.Sprintf("%s|\n", result)
	} else {
		result = fmt.Sprintf("%s \n", result)
	}
	for i, sn := range n.Subtrees {
		for j, line := range strings.Split(sn.String(), "\n") {
			if len(line) > 0 {
				if j == 0 {
					result = fmt.Sprintf("%s|__%s\n", result, line)
				} else {
					if i == len(n.Subtrees)-1 {
						result = fmt.Sprintf("%s   %s\n", result, line)
					} else {
						result = fmt.Sprintf("%s|  %s\n", result, line)
					}
				}
			}
		}
	}
	return result
}
