package audio

import "github.com/chabad360/go-osc/osc"

// addToTail is the /g_new and /s_new add action placing the new node
// after every existing child of the target group
const addToTail int32 = 1

func msgGroupNew(groupID, action, target int32) *osc.Message {
	return &osc.Message{
		Address:   "/g_new",
		Arguments: []interface{}{groupID, action, target},
	}
}

func msgSynthNew(def string, nodeID, action, target int32, params ...ParamValue) *osc.Message {
	args := make([]interface{}, 0, 4+2*len(params))
	args = append(args, def, nodeID, action, target)
	for _, p := range params {
		args = append(args, p.Name, p.Value)
	}
	return &osc.Message{Address: "/s_new", Arguments: args}
}

func msgNodeFree(nodeID int32) *osc.Message {
	return &osc.Message{Address: "/n_free", Arguments: []interface{}{nodeID}}
}

func msgNodeSet(nodeID int32, params ...ParamValue) *osc.Message {
	args := make([]interface{}, 0, 1+2*len(params))
	args = append(args, nodeID)
	for _, p := range params {
		args = append(args, p.Name, p.Value)
	}
	return &osc.Message{Address: "/n_set", Arguments: args}
}
