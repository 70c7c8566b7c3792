/*
Package light implements the trust-extension core of a light client.

A light client holds a few signed headers (light blocks) and decides whether
a header at some later height belongs to the canonical chain. Trust flows
from a block recorded as Trusted (the subjective anchor, see
Verifier.TrustLightBlock) or Verified to a block at a target height.

# Trust check

CheckTrust compares a candidate against an anchor. Both must be younger
than the trusting period and the candidate must be structurally valid. The
candidate is trusted when the part of the anchor's next validator set that
signed the candidate's commit carries at least the trust level (default 2/3)
of that set's voting power, and more than 2/3 of the candidate's own
validator set signed it.

# Bisection

Verifier.VerifyToTarget works over the half-open range (anchor, target]:

 1. Check the target directly against the anchor. If that is sufficient,
    the target becomes Verified and the edge target <- anchor is traced.
 2. If it is insufficient, verify anchor -> mid, with
    mid = anchor + (target-anchor)/2, then mid -> target using the block at
    mid as the anchor, and trace target <- mid.
 3. A structurally invalid candidate marks its height Failed and ends the
    session.
 4. If anchor and target are adjacent and the direct check is insufficient,
    the target is marked Failed and ErrBisectionExhausted is returned.

The recursion is run on an explicit stack. The midpoint depends only on the
two heights, so identical inputs always fetch the same heights and leave the
same trace. Candidates come from the store first and from the provider on a
miss, so a height is fetched at most once.

# Trace

State.TraceBlock records evidence edges and State.Trace resolves them to the
Verified blocks, highest first. The trace is per hop: a bisected target lists
the midpoint, not the original anchor.
*/
package light
