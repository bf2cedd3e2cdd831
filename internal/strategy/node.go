package strategy

import (
	bt "github.com/joeycumines/go-behaviortree"
)

// Node adapts s to a behavior tree leaf. Each tick is one activation: a
// failed probe is bt.Failure, a completed run is bt.Success. Errors,
// including control signals, are returned unchanged.
func Node(s Strategy) bt.Node {
	return bt.New(func(children []bt.Node) (bt.Status, error) {
		ran, _, err := Run(s)
		switch {
		case err != nil:
			return bt.Failure, err
		case !ran:
			return bt.Failure, nil
		}
		return bt.Success, nil
	})
}

// Running adapts s to a behavior tree leaf that reports bt.Running after
// each completed run, for actions whose effect takes several activations.
func Running(s Strategy) bt.Node {
	return bt.New(func(children []bt.Node) (bt.Status, error) {
		ran, _, err := Run(s)
		switch {
		case err != nil:
			return bt.Failure, err
		case !ran:
			return bt.Failure, nil
		}
		return bt.Running, nil
	})
}
