package pipeline

import "contract-intel/types"

// 阶段之间传递的类型各不相同，链路编译时就能发现顺序错误。
// 都指向同一个 PipelineState，出错时调用方仍能拿到已完成阶段的结果。

type Seeded struct {
	state *types.PipelineState
}

type ClausesExtracted struct {
	state *types.PipelineState
}

type RisksAnalyzed struct {
	state *types.PipelineState
}

type LifecycleExtracted struct {
	state *types.PipelineState
}

func seed(contractID string) Seeded {
	return Seeded{state: &types.PipelineState{ContractID: contractID}}
}
