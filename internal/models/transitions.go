package models

// TenderTransitions - допустимые переходы статусов тендера.
var TenderTransitions = map[TenderStatus][]TenderStatus{
	DraftTender:     {PublishedTender, CancelledTender},
	PublishedTender: {BiddingTender, CancelledTender},
	BiddingTender:   {ClosedTender, CancelledTender},
	ClosedTender:    {AwardedTender, CancelledTender},
	AwardedTender:   {},
	CancelledTender: {},
}

// ContractTransitions - допустимые переходы статусов контракта, только вперед.
var ContractTransitions = map[ContractStatus][]ContractStatus{
	DraftContract:           {PendingApprovalContract},
	PendingApprovalContract: {ApprovedContract},
	ApprovedContract:        {ActiveContract},
	ActiveContract:          {ExpiredContract, TerminatedContract},
	ExpiredContract:         {},
	TerminatedContract:      {},
}

// BidReviewStatuses - статусы, которые может выставить сотрудник при рассмотрении.
var BidReviewStatuses = []BidStatus{UnderReviewBid, ShortlistedBid, RejectedBid, AwardedBid}
