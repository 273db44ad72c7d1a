package registry

import (
	"github.com/vitwit/paymentkit/types"
	"github.com/vitwit/paymentkit/utils"
)

// verifyPayment checks the nonce format and that the coin carries exactly
// the declared amount.
func verifyPayment(nonce string, paymentAmount uint64, coin types.Coin) error {
	if err := utils.ValidateNonce(nonce); err != nil {
		return err
	}
	if coin.Amount != paymentAmount {
		return types.NewError(types.ErrIncorrectAmount,
			"coin holds %d but payment amount is %d", coin.Amount, paymentAmount).
			WithData(map[string]uint64{"paymentAmount": paymentAmount, "coinAmount": coin.Amount})
	}
	return nil
}
