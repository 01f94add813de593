package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// crowdfundingABI is the subset of the CrowdfundingPlatform contract the
// client talks to.
const crowdfundingABI = `[
  {"type":"function","name":"campaignCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"campaigns","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"creator","type":"address"},
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"imageURL","type":"string"},
     {"name":"fundingGoal","type":"uint256"},
     {"name":"amountRaised","type":"uint256"},
     {"name":"deadline","type":"uint256"},
     {"name":"status","type":"uint8"}]},
  {"type":"function","name":"contributions","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"createCampaign","stateMutability":"nonpayable",
   "inputs":[
     {"name":"_title","type":"string"},
     {"name":"_description","type":"string"},
     {"name":"_imageURL","type":"string"},
     {"name":"_fundingGoal","type":"uint256"},
     {"name":"_deadline","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"contribute","stateMutability":"payable",
   "inputs":[{"name":"_campaignId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"releaseOrRefund","stateMutability":"nonpayable",
   "inputs":[{"name":"_campaignId","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"CampaignCreated","anonymous":false,"inputs":[
     {"name":"id","type":"uint256","indexed":true},
     {"name":"creator","type":"address","indexed":true},
     {"name":"title","type":"string","indexed":false},
     {"name":"description","type":"string","indexed":false},
     {"name":"imageURL","type":"string","indexed":false},
     {"name":"fundingGoal","type":"uint256","indexed":false},
     {"name":"deadline","type":"uint256","indexed":false}]},
  {"type":"event","name":"ContributionMade","anonymous":false,"inputs":[
     {"name":"campaignId","type":"uint256","indexed":true},
     {"name":"backer","type":"address","indexed":true},
     {"name":"amount","type":"uint256","indexed":false}]}
]`

var contractABI = mustParseABI(crowdfundingABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
