package service

import "github.com/revenda-next/internal/constants"

// allowedOrderTransitions 订单状态机：终态（confirmed/cancelled/refunded）不可再流转
var allowedOrderTransitions = map[string][]string{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed,
		constants.OrderStatusOverdue,
		constants.OrderStatusCancelled,
		constants.OrderStatusRefunded,
	},
	constants.OrderStatusOverdue: {
		constants.OrderStatusConfirmed,
		constants.OrderStatusCancelled,
		constants.OrderStatusRefunded,
	},
	constants.OrderStatusConfirmed: {},
	constants.OrderStatusCancelled: {},
	constants.OrderStatusRefunded:  {},
}

// IsOrderTransitionAllowed 判断订单状态流转是否合法
func IsOrderTransitionAllowed(from, to string) bool {
	for _, candidate := range allowedOrderTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminalOrderStatus 判断订单状态是否为终态
func IsTerminalOrderStatus(status string) bool {
	switch status {
	case constants.OrderStatusConfirmed, constants.OrderStatusCancelled, constants.OrderStatusRefunded:
		return true
	default:
		return false
	}
}
